package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
)

// ResponseError is the error body shape of the API.
type ResponseError struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

// RespondWithError sends an error response and logs it.
func RespondWithError(c *gin.Context, statusCode int, message string, errorCode string, logger *zap.Logger) {
	logger.Warn("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", errorCode),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ResponseError{Error: message, Code: errorCode})
}

// RespondWithData sends a success response holding only data.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithMessage sends a success response holding only a message.
func RespondWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"message": message})
}

// RespondWithCreated sends a 201 with the created resource.
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// RespondWithDomainError maps a domain error onto the HTTP surface.
// Authentication failures are 401, challenge failures mostly 401/429,
// workflow conflicts 409, validation 400, not-found 404.
func RespondWithDomainError(c *gin.Context, err error, logger *zap.Logger) {
	var incorrectCode *domainErrors.IncorrectCodeError
	if errors.As(err, &incorrectCode) {
		remaining := incorrectCode.AttemptsRemaining
		logger.Warn("API error response",
			zap.Int("status_code", http.StatusUnauthorized),
			zap.String("error_code", "incorrect_code"),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusUnauthorized, ResponseError{
			Error:             err.Error(),
			Code:              "incorrect_code",
			AttemptsRemaining: &remaining,
		})
		return
	}

	switch {
	case errors.Is(err, domainErrors.ErrOTPCooldown):
		RespondWithError(c, http.StatusTooManyRequests, err.Error(), "otp_cooldown", logger)
	case errors.Is(err, domainErrors.ErrTooManyAttempts):
		RespondWithError(c, http.StatusTooManyRequests, err.Error(), "too_many_attempts", logger)
	case domainErrors.IsNotFound(err):
		RespondWithError(c, http.StatusNotFound, err.Error(), "not_found", logger)
	case domainErrors.IsAuthError(err):
		RespondWithError(c, http.StatusUnauthorized, err.Error(), "unauthorized", logger)
	case errors.Is(err, domainErrors.ErrForbidden):
		RespondWithError(c, http.StatusForbidden, err.Error(), "forbidden", logger)
	case domainErrors.IsChallengeError(err):
		RespondWithError(c, http.StatusUnauthorized, err.Error(), "challenge_failed", logger)
	case domainErrors.IsWorkflowConflict(err):
		RespondWithError(c, http.StatusConflict, err.Error(), "workflow_conflict", logger)
	case domainErrors.IsValidationError(err):
		RespondWithError(c, http.StatusBadRequest, err.Error(), "invalid_request", logger)
	default:
		logger.Error("Unhandled error on API surface", zap.Error(err), zap.String("path", c.Request.URL.Path))
		RespondWithError(c, http.StatusInternalServerError, "internal server error", "internal_error", logger)
	}
}
