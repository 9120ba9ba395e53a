package storage

import (
	"context"
	"time"

	"github.com/louisbranch/daybook/internal/platform/errors"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrEmailTaken indicates a user with the same normalized email exists.
	ErrEmailTaken = errors.New(errors.CodeValidation, "email is already registered")
	// ErrCredentialExists indicates a credential id is already stored.
	ErrCredentialExists = errors.New(errors.CodeValidation, "credential is already registered")
)

// UserStore persists auth user records.
type UserStore interface {
	// FindUserByEmail looks up a user by normalized email.
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
	// CreateUser inserts a new user; a duplicate email returns ErrEmailTaken.
	CreateUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
}

// Credential stores a WebAuthn credential for a user.
//
// SignCount is authoritative; the counter embedded in CredentialJSON is
// stale after the first authentication.
type Credential struct {
	ID             []byte
	UserID         string
	PublicKey      []byte
	SignCount      uint32
	CredentialJSON string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
}

// CredentialStore persists WebAuthn credentials.
type CredentialStore interface {
	ListCredentialsByUser(ctx context.Context, userID string) ([]Credential, error)
	// InsertCredential stores a new credential; a duplicate id returns ErrCredentialExists.
	InsertCredential(ctx context.Context, credential Credential) error
	UpdateCredentialCounter(ctx context.Context, credentialID []byte, counter uint32, usedAt time.Time) error
	FindCredential(ctx context.Context, credentialID []byte) (Credential, error)
}

// Challenge is the single pending ceremony challenge for a user.
type Challenge struct {
	UserID string
	// Value is the base64url challenge handed to the authenticator.
	Value       string
	Kind        passkey.SessionKind
	SessionJSON string
	ExpiresAt   time.Time
}

// Expired reports whether the challenge can no longer be answered at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ChallengeLedger keeps at most one pending challenge per user.
type ChallengeLedger interface {
	// SetChallenge stores the challenge, replacing any pending one for the user.
	SetChallenge(ctx context.Context, challenge Challenge) error
	GetChallenge(ctx context.Context, userID string) (Challenge, error)
	ClearChallenge(ctx context.Context, userID string) error
	// TakeChallenge returns and removes the pending challenge in one step.
	TakeChallenge(ctx context.Context, userID string) (Challenge, error)
	// DeleteExpiredChallenges removes challenges whose expiry is at or before now.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}

// Store bundles every contract a backing database provides.
type Store interface {
	UserStore
	CredentialStore
	ChallengeLedger
	Close() error
}
