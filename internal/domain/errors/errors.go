package errors

import (
	"errors"
	"fmt"
)

var (
	// Generic errors
	ErrInternal       = errors.New("internal error")
	ErrNotFound       = errors.New("resource not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")

	// Magic-link token errors
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")

	// Signing-session errors
	ErrSessionInvalid = errors.New("signing session invalid")
	ErrSessionExpired = errors.New("signing session expired")

	// OTP challenge errors
	ErrNoActiveChallenge = errors.New("no active challenge")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrIncorrectCode     = errors.New("incorrect code")
	ErrTooManyAttempts   = errors.New("too many attempts, signing link revoked")
	ErrOTPCooldown       = errors.New("code recently sent, wait before requesting again")
	ErrEmailMismatch     = errors.New("email does not match signer")

	// Workflow errors
	ErrInvalidEnvelopeState = errors.New("invalid envelope state")
	ErrOrderViolation       = errors.New("earlier signers have not signed yet")
	ErrAlreadySigned        = errors.New("signer already signed")
	ErrAlreadyDeclined      = errors.New("signer already declined")
	ErrSignerNotFound       = errors.New("signer not found")
	ErrEnvelopeNotFound     = errors.New("envelope not found")

	// Payload validation errors
	ErrMissingSignatureData = errors.New("signature data is required")
	ErrMissingConsent       = errors.New("explicit consent is required")
	ErrMalformedPayload     = errors.New("malformed signature payload")
)

// IncorrectCodeError carries the number of verification attempts left after
// a failed OTP check. It unwraps to ErrIncorrectCode.
type IncorrectCodeError struct {
	AttemptsRemaining int
}

func (e *IncorrectCodeError) Error() string {
	return fmt.Sprintf("incorrect code, %d attempts remaining", e.AttemptsRemaining)
}

func (e *IncorrectCodeError) Unwrap() error { return ErrIncorrectCode }

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrSignerNotFound) ||
		errors.Is(err, ErrEnvelopeNotFound)
}

// IsAuthError reports whether err means the caller failed authentication
// and must restart the magic-link flow.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenAlreadyUsed) ||
		errors.Is(err, ErrSessionInvalid) ||
		errors.Is(err, ErrSessionExpired)
}

// IsChallengeError reports whether err belongs to the OTP challenge taxonomy.
func IsChallengeError(err error) bool {
	return errors.Is(err, ErrNoActiveChallenge) ||
		errors.Is(err, ErrChallengeExpired) ||
		errors.Is(err, ErrIncorrectCode) ||
		errors.Is(err, ErrTooManyAttempts) ||
		errors.Is(err, ErrOTPCooldown) ||
		errors.Is(err, ErrEmailMismatch)
}

// IsWorkflowConflict reports whether err means the request conflicted with
// the envelope's current state rather than with authentication.
func IsWorkflowConflict(err error) bool {
	return errors.Is(err, ErrInvalidEnvelopeState) ||
		errors.Is(err, ErrOrderViolation) ||
		errors.Is(err, ErrAlreadySigned) ||
		errors.Is(err, ErrAlreadyDeclined)
}

// IsValidationError reports whether err is a signature payload validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrMissingSignatureData) ||
		errors.Is(err, ErrMissingConsent) ||
		errors.Is(err, ErrMalformedPayload)
}
