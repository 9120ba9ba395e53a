package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/daybook/internal/services/auth/storage"
)

const credentialColumns = `id, user_id, public_key, sign_count, credential_json, created_at, last_used_at`

type rowScanner interface {
	Scan(dest ...any) error
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
INSERT INTO credentials (`+credentialColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		credential.ID,
		credential.UserID,
		credential.PublicKey,
		int64(credential.SignCount),
		credential.CredentialJSON,
		toMillis(credential.CreatedAt),
		lastUsed,
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
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE id = ?`, credentialID)
	credential, err := scanCredential(row)
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
SELECT `+credentialColumns+`
FROM credentials
WHERE user_id = ?
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
UPDATE credentials
SET sign_count = ?, last_used_at = ?
WHERE id = ?`, int64(counter), toMillis(usedAt), credentialID)
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
