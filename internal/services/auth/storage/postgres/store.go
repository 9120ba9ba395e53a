package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/louisbranch/daybook/internal/platform/storage/migrate"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/storage/postgres/migrations"
	"github.com/louisbranch/daybook/internal/services/auth/user"
)

const uniqueViolation = "23505"

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements auth persistence over PostgreSQL.
type Store struct {
	sqlDB *sql.DB
}

// Open connects to PostgreSQL and applies bundled migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	if err := migrate.Apply(ctx, sqlDB, migrate.DialectPostgres, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// DB returns the raw database handle.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateUser inserts a user record.
func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, email, display_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.DisplayName, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser fetches a user record by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return user.User{}, fmt.Errorf("user id is required")
	}
	return scanUser(s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, display_name, created_at, updated_at FROM users WHERE id = $1`, userID))
}

// FindUserByEmail fetches a user record by normalized email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	if strings.TrimSpace(email) == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	return scanUser(s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, display_name, created_at, updated_at FROM users WHERE email = $1`, email))
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u         user.User
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

// InsertCredential stores a newly registered WebAuthn credential.
func (s *Store) InsertCredential(ctx context.Context, credential storage.Credential) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(credential.ID) == 0 {
		return fmt.Errorf("credential id is required")
	}
	if strings.TrimSpace(credential.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(credential.CredentialJSON) == "" {
		return fmt.Errorf("credential json is required")
	}
	lastUsed := sql.NullInt64{}
	if credential.LastUsedAt != nil {
		lastUsed = sql.NullInt64{Int64: toMillis(*credential.LastUsedAt), Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO credentials (id, user_id, public_key, sign_count, credential_json, created_at, last_used_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		credential.ID, credential.UserID, credential.PublicKey, int64(credential.SignCount),
		credential.CredentialJSON, toMillis(credential.CreatedAt), lastUsed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCredentialExists
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// FindCredential fetches a credential by its binary ID.
func (s *Store) FindCredential(ctx context.Context, credentialID []byte) (storage.Credential, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Credential{}, err
	}
	if len(credentialID) == 0 {
		return storage.Credential{}, fmt.Errorf("credential id is required")
	}
	credential, err := scanCredential(s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, public_key, sign_count, credential_json, created_at, last_used_at
FROM credentials WHERE id = $1`, credentialID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Credential{}, storage.ErrNotFound
		}
		return storage.Credential{}, fmt.Errorf("find credential: %w", err)
	}
	return credential, nil
}

// ListCredentialsByUser returns a user's credentials in registration order.
func (s *Store) ListCredentialsByUser(ctx context.Context, userID string) ([]storage.Credential, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, public_key, sign_count, credential_json, created_at, last_used_at
FROM credentials
WHERE user_id = $1
ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	credentials := make([]storage.Credential, 0)
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return credentials, nil
}

// UpdateCredentialCounter records a successful authentication.
func (s *Store) UpdateCredentialCounter(ctx context.Context, credentialID []byte, counter uint32, usedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(credentialID) == 0 {
		return fmt.Errorf("credential id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE credentials SET sign_count = $1, last_used_at = $2 WHERE id = $3`,
		int64(counter), toMillis(usedAt), credentialID)
	if err != nil {
		return fmt.Errorf("update credential counter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential counter: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanCredential(row rowScanner) (storage.Credential, error) {
	var (
		credential storage.Credential
		signCount  int64
		createdAt  int64
		lastUsedAt sql.NullInt64
	)
	if err := row.Scan(
		&credential.ID,
		&credential.UserID,
		&credential.PublicKey,
		&signCount,
		&credential.CredentialJSON,
		&createdAt,
		&lastUsedAt,
	); err != nil {
		return storage.Credential{}, err
	}
	credential.SignCount = uint32(signCount)
	credential.CreatedAt = fromMillis(createdAt)
	if lastUsedAt.Valid {
		value := fromMillis(lastUsedAt.Int64)
		credential.LastUsedAt = &value
	}
	return credential, nil
}

// SetChallenge stores the pending challenge for a user, replacing any previous one.
func (s *Store) SetChallenge(ctx context.Context, challenge storage.Challenge) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(challenge.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(challenge.Value) == "" {
		return fmt.Errorf("challenge value is required")
	}
	if !challenge.Kind.Valid() {
		return fmt.Errorf("challenge kind %q is invalid", challenge.Kind)
	}
	if strings.TrimSpace(challenge.SessionJSON) == "" {
		return fmt.Errorf("session json is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO challenges (user_id, value, kind, session_json, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
    value = EXCLUDED.value,
    kind = EXCLUDED.kind,
    session_json = EXCLUDED.session_json,
    expires_at = EXCLUDED.expires_at`,
		challenge.UserID, challenge.Value, string(challenge.Kind), challenge.SessionJSON, toMillis(challenge.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("set challenge: %w", err)
	}
	return nil
}

// GetChallenge reads the pending challenge without consuming it.
func (s *Store) GetChallenge(ctx context.Context, userID string) (storage.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Challenge{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return storage.Challenge{}, fmt.Errorf("user id is required")
	}
	return scanChallenge(s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, value, kind, session_json, expires_at FROM challenges WHERE user_id = $1`, userID), "get challenge")
}

// TakeChallenge reads and deletes the pending challenge in one statement.
func (s *Store) TakeChallenge(ctx context.Context, userID string) (storage.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Challenge{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return storage.Challenge{}, fmt.Errorf("user id is required")
	}
	return scanChallenge(s.sqlDB.QueryRowContext(ctx, `
DELETE FROM challenges WHERE user_id = $1
RETURNING user_id, value, kind, session_json, expires_at`, userID), "take challenge")
}

// ClearChallenge removes the pending challenge, if any.
func (s *Store) ClearChallenge(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM challenges WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	return nil
}

// DeleteExpiredChallenges removes challenges that expired at or before now.
func (s *Store) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= $1`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	return deleted, nil
}

func scanChallenge(row rowScanner, op string) (storage.Challenge, error) {
	var (
		challenge storage.Challenge
		kind      string
		expiresAt int64
	)
	if err := row.Scan(&challenge.UserID, &challenge.Value, &kind, &challenge.SessionJSON, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Challenge{}, storage.ErrNotFound
		}
		return storage.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}
	challenge.Kind = passkey.SessionKind(kind)
	challenge.ExpiresAt = fromMillis(expiresAt)
	return challenge, nil
}
