package ceremony

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/user"
)

// memoryStore implements every storage contract in memory.
type memoryStore struct {
	mu          sync.Mutex
	users       map[string]user.User
	credentials []storage.Credential
	challenges  map[string]storage.Challenge
	listErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      make(map[string]user.User),
		challenges: make(map[string]storage.Challenge),
	}
}

func (s *memoryStore) FindUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *memoryStore) CreateUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *memoryStore) GetUser(_ context.Context, userID string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *memoryStore) ListCredentialsByUser(_ context.Context, userID string) ([]storage.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []storage.Credential
	for _, c := range s.credentials {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) InsertCredential(_ context.Context, credential storage.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if bytes.Equal(c.ID, credential.ID) {
			return storage.ErrCredentialExists
		}
	}
	s.credentials = append(s.credentials, credential)
	return nil
}

func (s *memoryStore) UpdateCredentialCounter(_ context.Context, credentialID []byte, counter uint32, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.credentials {
		if bytes.Equal(s.credentials[i].ID, credentialID) {
			s.credentials[i].SignCount = counter
			value := usedAt
			s.credentials[i].LastUsedAt = &value
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *memoryStore) FindCredential(_ context.Context, credentialID []byte) (storage.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if bytes.Equal(c.ID, credentialID) {
			return c, nil
		}
	}
	return storage.Credential{}, storage.ErrNotFound
}

func (s *memoryStore) SetChallenge(_ context.Context, challenge storage.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.UserID] = challenge
	return nil
}

func (s *memoryStore) GetChallenge(_ context.Context, userID string) (storage.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[userID]
	if !ok {
		return storage.Challenge{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *memoryStore) ClearChallenge(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, userID)
	return nil
}

func (s *memoryStore) TakeChallenge(_ context.Context, userID string) (storage.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[userID]
	if !ok {
		return storage.Challenge{}, storage.ErrNotFound
	}
	delete(s.challenges, userID)
	return c, nil
}

func (s *memoryStore) DeleteExpiredChallenges(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for userID, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, userID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryStore) credential(t *testing.T, id []byte) storage.Credential {
	t.Helper()
	c, err := s.FindCredential(context.Background(), id)
	if err != nil {
		t.Fatalf("find credential: %v", err)
	}
	return c
}

// fakeResponse is the wire format produced by fakeAuthenticator and read by
// fakeParser in place of CBOR attestation and assertion payloads.
type fakeResponse struct {
	CredentialID []byte `json:"credentialId"`
	Challenge    string `json:"challenge"`
	PublicKey    []byte `json:"publicKey,omitempty"`
	Signature    []byte `json:"signature,omitempty"`
	Counter      uint32 `json:"counter"`
}

// fakeAuthenticator signs challenges by prefixing them with its public key.
type fakeAuthenticator struct {
	id        []byte
	publicKey []byte
	counter   uint32
}

func (a *fakeAuthenticator) register(t *testing.T, challenge string) []byte {
	t.Helper()
	return mustJSON(t, fakeResponse{
		CredentialID: a.id,
		Challenge:    challenge,
		PublicKey:    a.publicKey,
		Counter:      a.counter,
	})
}

func (a *fakeAuthenticator) assert(t *testing.T, challenge string, counter uint32) []byte {
	t.Helper()
	return mustJSON(t, fakeResponse{
		CredentialID: a.id,
		Challenge:    challenge,
		Signature:    fakeSignature(a.publicKey, challenge),
		Counter:      counter,
	})
}

func fakeSignature(publicKey []byte, challenge string) []byte {
	return append(append([]byte(nil), publicKey...), challenge...)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

type fakeParser struct{}

func (fakeParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	var r fakeResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	parsed := &protocol.ParsedCredentialCreationData{}
	parsed.ID = base64.RawURLEncoding.EncodeToString(r.CredentialID)
	parsed.RawID = r.CredentialID
	parsed.Response.CollectedClientData.Challenge = r.Challenge
	parsed.Response.AttestationObject.AuthData.Counter = r.Counter
	parsed.Response.AttestationObject.AuthData.AttData.CredentialID = r.CredentialID
	parsed.Response.AttestationObject.AuthData.AttData.CredentialPublicKey = r.PublicKey
	return parsed, nil
}

func (fakeParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	var r fakeResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	parsed := &protocol.ParsedCredentialAssertionData{}
	parsed.ID = base64.RawURLEncoding.EncodeToString(r.CredentialID)
	parsed.RawID = r.CredentialID
	parsed.Response.CollectedClientData.Challenge = r.Challenge
	parsed.Response.AuthenticatorData.Counter = r.Counter
	parsed.Response.Signature = r.Signature
	return parsed, nil
}

// fakeProvider uses the real library to issue options and challenges and
// replaces only the cryptographic verification steps.
type fakeProvider struct {
	*webauthn.WebAuthn
}

func (f *fakeProvider) CreateCredential(u webauthn.User, session webauthn.SessionData, parsed *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error) {
	if parsed.Response.CollectedClientData.Challenge != session.Challenge {
		return nil, errors.New("challenge mismatch")
	}
	if !bytes.Equal(session.UserID, u.WebAuthnID()) {
		return nil, errors.New("user mismatch")
	}
	authData := parsed.Response.AttestationObject.AuthData
	return &webauthn.Credential{
		ID:              authData.AttData.CredentialID,
		PublicKey:       authData.AttData.CredentialPublicKey,
		AttestationType: "none",
		Authenticator:   webauthn.Authenticator{SignCount: authData.Counter},
	}, nil
}

func (f *fakeProvider) ValidateLogin(u webauthn.User, session webauthn.SessionData, parsed *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error) {
	if parsed.Response.CollectedClientData.Challenge != session.Challenge {
		return nil, errors.New("challenge mismatch")
	}
	allowed := false
	for _, id := range session.AllowedCredentialIDs {
		if bytes.Equal(id, parsed.RawID) {
			allowed = true
		}
	}
	if !allowed {
		return nil, errors.New("credential not allowed")
	}
	for _, credential := range u.WebAuthnCredentials() {
		if !bytes.Equal(credential.ID, parsed.RawID) {
			continue
		}
		if !bytes.Equal(parsed.Response.Signature, fakeSignature(credential.PublicKey, session.Challenge)) {
			return nil, errors.New("bad signature")
		}
		return &credential, nil
	}
	return nil, errors.New("unknown credential")
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *memoryStore, *testClock) {
	t.Helper()
	cfg, err := (passkey.Config{RPOrigins: []string{"https://daybook.test"}}).Normalize()
	if err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	wa, err := webauthn.New(cfg.WebAuthnConfig())
	if err != nil {
		t.Fatalf("init webauthn: %v", err)
	}
	store := newMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	ids := 0
	engine, err := NewEngine(cfg, store, store, store,
		WithClock(clock.Now),
		WithIDGenerator(func() (string, error) {
			ids++
			return "user-" + string(rune('0'+ids)), nil
		}),
		withProvider(&fakeProvider{WebAuthn: wa}),
		withParser(fakeParser{}),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, store, clock
}
