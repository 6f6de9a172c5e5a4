package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/config"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/handler/http/middleware"
)

// SetupRouter wires the HTTP surface: the administrative envelope API, the
// signer-facing signing flow and, outside production, the OTP inspection
// endpoint.
func SetupRouter(
	tokenService service.TokenService,
	otpService service.OTPService,
	sessionService service.SessionService,
	envelopeService service.EnvelopeService,
	auditService service.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CorsMiddleware(cfg.Server.CORSAllowedOrigins))
	if cfg.Metrics.Enabled {
		router.Use(middleware.MetricsMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	signingHandler := NewSigningHandler(tokenService, otpService, sessionService, envelopeService, logger)
	envelopeHandler := NewEnvelopeHandler(envelopeService, auditService, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/readiness", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		envelopes := api.Group("/envelopes")
		{
			envelopes.POST("", envelopeHandler.CreateEnvelope)
			envelopes.GET("/:envelope_id", envelopeHandler.GetEnvelope)
			envelopes.POST("/:envelope_id/documents", envelopeHandler.AddDocument)
			envelopes.POST("/:envelope_id/signers", envelopeHandler.AddSigner)
			envelopes.POST("/:envelope_id/send", envelopeHandler.Send)
			envelopes.POST("/:envelope_id/cancel", envelopeHandler.Cancel)
			envelopes.GET("/:envelope_id/audit", envelopeHandler.AuditTrail)
			envelopes.GET("/:envelope_id/signers/:signer_id/verify", envelopeHandler.VerifySignature)
			envelopes.POST("/:envelope_id/signers/:signer_id/reissue", envelopeHandler.ReissueLink)
		}

		signing := api.Group("/signing")
		{
			signing.POST("/validate", signingHandler.ValidateLink)
			signing.POST("/otp/request", signingHandler.RequestOTP)
			signing.POST("/otp/verify", signingHandler.VerifyOTP)

			signing.GET("/envelopes/:envelope_id", signingHandler.GetEnvelope)
			signing.POST("/envelopes/:envelope_id/session/extend", signingHandler.ExtendSession)
			signing.POST("/envelopes/:envelope_id/view", signingHandler.RecordView)
			signing.POST("/envelopes/:envelope_id/signature", signingHandler.CaptureSignature)
			signing.POST("/envelopes/:envelope_id/decline", signingHandler.Decline)
		}

		if !cfg.IsProduction() {
			dev := api.Group("/dev")
			{
				dev.GET("/envelopes/:envelope_id/otp", signingHandler.PeekOTPCode)
			}
		}
	}

	return router
}
