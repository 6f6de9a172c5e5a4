package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/events/kafka"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/metrics"
)

// tokenRetention keeps consumed and expired token rows around for a while
// so late audit questions ("was this link ever used?") stay answerable.
const tokenRetention = 30 * 24 * time.Hour

// CleanupService runs the periodic maintenance sweep: expired tokens and
// challenges are deleted, overdue pending envelopes are expired together
// with their outstanding signers.
type CleanupService interface {
	// Run blocks, sweeping on the configured interval until ctx is done.
	Run(ctx context.Context)

	// Sweep executes one maintenance pass.
	Sweep(ctx context.Context)
}

type cleanupService struct {
	interval     time.Duration
	tokenRepo    repository.TokenRepository
	otpRepo      repository.OTPChallengeRepository
	envelopeRepo repository.EnvelopeRepository
	signerRepo   repository.SignerRepository
	auditService AuditService
	events       EventPublisher
	logger       *zap.Logger
}

// NewCleanupService creates a new CleanupService.
func NewCleanupService(
	interval time.Duration,
	tokenRepo repository.TokenRepository,
	otpRepo repository.OTPChallengeRepository,
	envelopeRepo repository.EnvelopeRepository,
	signerRepo repository.SignerRepository,
	auditService AuditService,
	events EventPublisher,
	logger *zap.Logger,
) CleanupService {
	return &cleanupService{
		interval:     interval,
		tokenRepo:    tokenRepo,
		otpRepo:      otpRepo,
		envelopeRepo: envelopeRepo,
		signerRepo:   signerRepo,
		auditService: auditService,
		events:       events,
		logger:       logger.Named("cleanup_service"),
	}
}

func (s *cleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Cleanup loop started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Cleanup loop stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *cleanupService) Sweep(ctx context.Context) {
	now := time.Now()

	if deleted, err := s.tokenRepo.DeleteExpiredAndUsed(ctx, tokenRetention); err != nil {
		s.logger.Error("Failed to delete stale tokens", zap.Error(err))
	} else if deleted > 0 {
		metrics.CleanupDeletedTotal.WithLabelValues("tokens").Add(float64(deleted))
		s.logger.Info("Deleted stale tokens", zap.Int64("count", deleted))
	}

	if deleted, err := s.otpRepo.DeleteExpired(ctx); err != nil {
		s.logger.Error("Failed to delete expired OTP challenges", zap.Error(err))
	} else if deleted > 0 {
		metrics.CleanupDeletedTotal.WithLabelValues("otp_challenges").Add(float64(deleted))
		s.logger.Info("Deleted expired OTP challenges", zap.Int64("count", deleted))
	}

	expiredIDs, err := s.envelopeRepo.ExpireDue(ctx, now)
	if err != nil {
		s.logger.Error("Failed to expire overdue envelopes", zap.Error(err))
		return
	}
	if len(expiredIDs) == 0 {
		return
	}

	if _, err := s.signerRepo.ExpireByEnvelopeIDs(ctx, expiredIDs, now); err != nil {
		s.logger.Error("Failed to expire signers of overdue envelopes", zap.Error(err))
	}

	for _, envelopeID := range expiredIDs {
		s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, nil, entity.AuditEventEnvelopeExpired, "", "", nil))
		s.events.Publish(ctx, kafka.EventEnvelopeExpired, envelopeID.String(), nil)
	}
	metrics.CleanupDeletedTotal.WithLabelValues("envelopes_expired").Add(float64(len(expiredIDs)))
	s.logger.Info("Expired overdue envelopes", zap.Int("count", len(expiredIDs)))
}
