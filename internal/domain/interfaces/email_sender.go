package interfaces

import "context"

// EmailSender delivers workflow mail out of band. Implementations are
// fire-and-forget from the workflow's point of view: a delivery failure is
// logged by the caller and never fails the triggering transition.
type EmailSender interface {
	// SendSigningInvitation delivers the magic link for a signer.
	SendSigningInvitation(ctx context.Context, email, signerName, envelopeTitle, signingURL string) error

	// SendOTPCode delivers a one-time passcode to the signer's address.
	SendOTPCode(ctx context.Context, email, code string, expiresInSeconds int) error
}
