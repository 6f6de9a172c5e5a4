package http

import (
	"encoding/json"
	"time"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
)

type envelopeResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	WorkflowMode string  `json:"workflow_mode"`
	Status       string  `json:"status"`
	ExpiresAt    *string `json:"expires_at,omitempty"`
	SentAt       *string `json:"sent_at,omitempty"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	CancelledAt  *string `json:"cancelled_at,omitempty"`
	CancelReason *string `json:"cancel_reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type signerResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	SequenceNumber int     `json:"sequence_number"`
	Status         string  `json:"status"`
	ViewedAt       *string `json:"viewed_at,omitempty"`
	SignedAt       *string `json:"signed_at,omitempty"`
	DeclinedAt     *string `json:"declined_at,omitempty"`
	DeclineReason  *string `json:"decline_reason,omitempty"`
}

type documentResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes"`
	Position    int    `json:"position"`
}

type envelopeViewResponse struct {
	Envelope  envelopeResponse   `json:"envelope"`
	Documents []documentResponse `json:"documents"`
	Signers   []signerResponse   `json:"signers"`
}

type signerViewResponse struct {
	envelopeViewResponse
	Me      signerResponse `json:"me"`
	CanSign bool           `json:"can_sign"`
}

type auditEventResponse struct {
	ID        int64           `json:"id"`
	SignerID  *string         `json:"signer_id,omitempty"`
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt string          `json:"created_at"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toEnvelopeResponse(envelope *entity.Envelope) envelopeResponse {
	return envelopeResponse{
		ID:           envelope.ID.String(),
		Title:        envelope.Title,
		WorkflowMode: string(envelope.WorkflowMode),
		Status:       string(envelope.Status),
		ExpiresAt:    formatTimePtr(envelope.ExpiresAt),
		SentAt:       formatTimePtr(envelope.SentAt),
		CompletedAt:  formatTimePtr(envelope.CompletedAt),
		CancelledAt:  formatTimePtr(envelope.CancelledAt),
		CancelReason: envelope.CancelReason,
		CreatedAt:    envelope.CreatedAt.Format(time.RFC3339),
	}
}

func toSignerResponse(signer *entity.Signer) signerResponse {
	return signerResponse{
		ID:             signer.ID.String(),
		Name:           signer.Name,
		Email:          signer.Email,
		SequenceNumber: signer.SequenceNumber,
		Status:         string(signer.Status),
		ViewedAt:       formatTimePtr(signer.ViewedAt),
		SignedAt:       formatTimePtr(signer.SignedAt),
		DeclinedAt:     formatTimePtr(signer.DeclinedAt),
		DeclineReason:  signer.DeclineReason,
	}
}

func toDocumentResponse(document *entity.Document) documentResponse {
	return documentResponse{
		ID:          document.ID.String(),
		FileName:    document.FileName,
		ContentHash: document.ContentHash,
		SizeBytes:   document.SizeBytes,
		Position:    document.Position,
	}
}

func toEnvelopeViewResponse(snapshot *service.SigningSnapshot) envelopeViewResponse {
	view := envelopeViewResponse{
		Envelope:  toEnvelopeResponse(snapshot.Envelope),
		Documents: make([]documentResponse, 0, len(snapshot.Documents)),
		Signers:   make([]signerResponse, 0, len(snapshot.Signers)),
	}
	for _, document := range snapshot.Documents {
		view.Documents = append(view.Documents, toDocumentResponse(document))
	}
	for _, signer := range snapshot.Signers {
		view.Signers = append(view.Signers, toSignerResponse(signer))
	}
	return view
}

func toSignerViewResponse(snapshot *service.SigningSnapshot) signerViewResponse {
	return signerViewResponse{
		envelopeViewResponse: toEnvelopeViewResponse(snapshot),
		Me:                   toSignerResponse(snapshot.Me),
		CanSign:              snapshot.CanSign,
	}
}

func toAuditEventResponse(event *entity.AuditEvent) auditEventResponse {
	response := auditEventResponse{
		ID:        event.ID,
		Type:      string(event.Type),
		Details:   event.Details,
		CreatedAt: event.CreatedAt.Format(time.RFC3339),
	}
	if event.SignerID != nil {
		s := event.SignerID.String()
		response.SignerID = &s
	}
	return response
}
