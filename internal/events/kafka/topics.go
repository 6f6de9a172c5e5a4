package kafka

// Event types published on the signing topic.
const (
	EventEnvelopeSent      = "signing.envelope.sent"
	EventEnvelopeCompleted = "signing.envelope.completed"
	EventEnvelopeCancelled = "signing.envelope.cancelled"
	EventEnvelopeExpired   = "signing.envelope.expired"
	EventSignerSigned      = "signing.signer.signed"
	EventSignerDeclined    = "signing.signer.declined"
)
