package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
)

const challengeColumns = `user_id, value, kind, session_json, expires_at`

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
INSERT INTO challenges (`+challengeColumns+`)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    value = excluded.value,
    kind = excluded.kind,
    session_json = excluded.session_json,
    expires_at = excluded.expires_at`,
		challenge.UserID,
		challenge.Value,
		string(challenge.Kind),
		challenge.SessionJSON,
		toMillis(challenge.ExpiresAt),
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
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE user_id = ?`, userID)
	return scanChallenge(row, "get challenge")
}

// TakeChallenge reads and deletes the pending challenge in one statement.
func (s *Store) TakeChallenge(ctx context.Context, userID string) (storage.Challenge, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Challenge{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return storage.Challenge{}, fmt.Errorf("user id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `DELETE FROM challenges WHERE user_id = ? RETURNING `+challengeColumns, userID)
	return scanChallenge(row, "take challenge")
}

// ClearChallenge removes the pending challenge, if any.
func (s *Store) ClearChallenge(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM challenges WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	return nil
}

// DeleteExpiredChallenges removes challenges that expired at or before now.
func (s *Store) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM challenges WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	return deleted, nil
}

func scanChallenge(row *sql.Row, op string) (storage.Challenge, error) {
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
