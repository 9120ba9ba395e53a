// Package errors provides structured error handling for the auth core.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeValidation Code = "VALIDATION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Ceremony errors
	CodeNoCredentials         Code = "NO_CREDENTIALS"
	CodeChallengeExpired      Code = "CHALLENGE_EXPIRED"
	CodeAssertionVerification Code = "ASSERTION_VERIFICATION"
	CodeCounterRegression     Code = "COUNTER_REGRESSION"

	// Startup errors
	CodeConfiguration Code = "CONFIGURATION"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input, missing enrollment
	case CodeValidation,
		CodeNoCredentials:
		return http.StatusBadRequest

	// Unauthorized - the ceremony could not prove identity
	case CodeChallengeExpired,
		CodeAssertionVerification,
		CodeCounterRegression:
		return http.StatusUnauthorized

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
