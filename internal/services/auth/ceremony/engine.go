package ceremony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
	"github.com/louisbranch/daybook/internal/platform/id"
	platformotel "github.com/louisbranch/daybook/internal/platform/otel"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/user"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/daybook/internal/services/auth/ceremony"

// Begin is the outcome of starting a ceremony.
type Begin struct {
	// Options is the JSON the browser hands to navigator.credentials.
	Options json.RawMessage
	// Challenge is the base64url challenge embedded in Options.
	Challenge string
	User      user.User
	ExpiresAt time.Time
}

// Result is the verified subject of a completed ceremony.
type Result struct {
	User         user.User
	CredentialID string
}

// Engine drives passkey ceremonies against the user, credential and
// challenge stores.
type Engine struct {
	config      passkey.Config
	users       storage.UserStore
	credentials storage.CredentialStore
	challenges  storage.ChallengeLedger
	webauthn    provider
	parser      parser
	clock       func() time.Time
	idGenerator func() (string, error)
	tracer      trace.Tracer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for challenge expiry.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator overrides user ID generation.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(e *Engine) {
		if generator != nil {
			e.idGenerator = generator
		}
	}
}

func withProvider(p provider) Option {
	return func(e *Engine) { e.webauthn = p }
}

func withParser(p parser) Option {
	return func(e *Engine) { e.parser = p }
}

// NewEngine builds an engine for the relying party described by cfg.
func NewEngine(cfg passkey.Config, users storage.UserStore, credentials storage.CredentialStore, challenges storage.ChallengeLedger, opts ...Option) (*Engine, error) {
	if users == nil || credentials == nil || challenges == nil {
		return nil, apperrors.New(apperrors.CodeConfiguration, "ceremony stores are required")
	}
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, "passkey config", err)
	}

	e := &Engine{
		config:      normalized,
		users:       users,
		credentials: credentials,
		challenges:  challenges,
		parser:      defaultParser{},
		clock:       time.Now,
		idGenerator: id.NewID,
		tracer:      platformotel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.webauthn == nil {
		wa, err := webauthn.New(normalized.WebAuthnConfig())
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, "init webauthn", err)
		}
		e.webauthn = wa
	}
	return e, nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "ceremony."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.GetCode(err)))
	}
	span.End()
}

// findUser resolves an email to a user, mapping a miss to ErrUserNotFound.
func (e *Engine) findUser(ctx context.Context, rawEmail string) (user.User, error) {
	email, err := user.NormalizeEmail(rawEmail)
	if err != nil {
		return user.User{}, err
	}
	found, err := e.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("find user: %w", err)
	}
	return found, nil
}

func (e *Engine) loadWebAuthnUser(ctx context.Context, base user.User) (*webauthnUser, []storage.Credential, error) {
	records, err := e.credentials.ListCredentialsByUser(ctx, base.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list credentials: %w", err)
	}
	credentials, err := decodeStoredCredentials(records)
	if err != nil {
		return nil, nil, err
	}
	return &webauthnUser{user: base, credentials: credentials}, records, nil
}

// storeChallenge replaces the user's pending challenge with session.
func (e *Engine) storeChallenge(ctx context.Context, userID string, kind passkey.SessionKind, session *webauthn.SessionData) (time.Time, error) {
	if session == nil {
		return time.Time{}, fmt.Errorf("session data is required")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode session: %w", err)
	}
	expiresAt := e.now().Add(e.config.ChallengeTTL)
	if err := e.challenges.SetChallenge(ctx, storage.Challenge{
		UserID:      userID,
		Value:       session.Challenge,
		Kind:        kind,
		SessionJSON: string(payload),
		ExpiresAt:   expiresAt,
	}); err != nil {
		return time.Time{}, fmt.Errorf("store challenge: %w", err)
	}
	return expiresAt, nil
}

// takeChallenge consumes the pending challenge and checks it can still be answered.
func (e *Engine) takeChallenge(ctx context.Context, userID string, kind passkey.SessionKind) (webauthn.SessionData, error) {
	stored, err := e.challenges.TakeChallenge(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return webauthn.SessionData{}, ErrChallengeExpired
		}
		return webauthn.SessionData{}, fmt.Errorf("take challenge: %w", err)
	}
	if stored.Kind != kind || stored.Expired(e.now()) {
		return webauthn.SessionData{}, ErrChallengeExpired
	}

	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(stored.SessionJSON), &session); err != nil {
		return webauthn.SessionData{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func trimResponse(response []byte) []byte {
	return []byte(strings.TrimSpace(string(response)))
}

func spanUser(span trace.Span, u user.User) {
	span.SetAttributes(attribute.String("daybook.user_id", u.ID))
}
