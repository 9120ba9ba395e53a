// Package user provides auth user management.
package user

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
	"github.com/louisbranch/daybook/internal/platform/id"
)

const maxDisplayNameLength = 64

var (
	// ErrEmptyEmail indicates a missing email address.
	ErrEmptyEmail = apperrors.New(apperrors.CodeValidation, "email is required")
	// ErrInvalidEmail indicates an email that is not shaped like local@domain.
	ErrInvalidEmail = apperrors.New(apperrors.CodeValidation, "email must look like name@example.com")
	// ErrEmptyDisplayName indicates a new user without a display name.
	ErrEmptyDisplayName = apperrors.New(apperrors.CodeValidation, "display name is required")
	// ErrDisplayNameTooLong indicates a display name over the length cap.
	ErrDisplayNameTooLong = apperrors.New(apperrors.CodeValidation, "display name must be at most 64 characters")
)

// User represents an authenticated identity record.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserInput describes the metadata needed to create a user.
type CreateUserInput struct {
	Email       string
	DisplayName string
}

// NormalizeEmail trims and lowercases an email, then checks its shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrEmptyEmail
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") || strings.ContainsAny(email, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// CreateUser creates a durable user identity from validated input.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:          userID,
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateUserInput trims and normalizes input before validation.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return CreateUserInput{}, err
	}
	input.Email = email
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		return CreateUserInput{}, ErrEmptyDisplayName
	}
	if len([]rune(input.DisplayName)) > maxDisplayNameLength {
		return CreateUserInput{}, ErrDisplayNameTooLong
	}
	return input, nil
}
