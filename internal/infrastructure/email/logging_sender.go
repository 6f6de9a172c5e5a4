package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/interfaces"
)

// LoggingSender is the default EmailSender wired when no mail provider is
// configured. It logs what would be sent; OTP codes are never logged.
type LoggingSender struct {
	logger *zap.Logger
}

// NewLoggingSender creates a new instance.
func NewLoggingSender(logger *zap.Logger) *LoggingSender {
	return &LoggingSender{logger: logger.Named("email")}
}

func (s *LoggingSender) SendSigningInvitation(ctx context.Context, email, signerName, envelopeTitle, signingURL string) error {
	s.logger.Info("Would send signing invitation",
		zap.String("email", email),
		zap.String("signer_name", signerName),
		zap.String("envelope_title", envelopeTitle),
	)
	return nil
}

func (s *LoggingSender) SendOTPCode(ctx context.Context, email, code string, expiresInSeconds int) error {
	s.logger.Info("Would send OTP code",
		zap.String("email", email),
		zap.Int("expires_in_seconds", expiresInSeconds),
	)
	return nil
}

var _ interfaces.EmailSender = (*LoggingSender)(nil)
