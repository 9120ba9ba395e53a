package ceremony

import (
	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
)

var (
	// ErrUserNotFound indicates no account exists for the email.
	ErrUserNotFound = apperrors.New(apperrors.CodeNotFound, "no account for this email")
	// ErrNoCredentials indicates the account has no registered passkeys.
	ErrNoCredentials = apperrors.New(apperrors.CodeNoCredentials, "no passkeys registered for this account")
	// ErrChallengeExpired indicates the pending challenge is missing, expired, or for the other ceremony.
	ErrChallengeExpired = apperrors.New(apperrors.CodeChallengeExpired, "challenge expired, start again")
	// ErrCounterRegression indicates the authenticator counter did not advance.
	ErrCounterRegression = apperrors.New(apperrors.CodeCounterRegression, "authenticator counter did not advance")
	// ErrResponseRequired indicates an empty client response.
	ErrResponseRequired = apperrors.New(apperrors.CodeAssertionVerification, "credential response is required")
	// ErrUnknownCredential indicates the assertion names a credential the user does not own.
	ErrUnknownCredential = apperrors.New(apperrors.CodeAssertionVerification, "credential is not registered for this account")
)

func assertionError(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeAssertionVerification, message, cause)
}
