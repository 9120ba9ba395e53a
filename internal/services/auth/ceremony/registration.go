package ceremony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/user"
)

// BeginRegistration starts enrolling a new passkey for email, creating the
// user on first use. displayName is only read when the user is new.
func (e *Engine) BeginRegistration(ctx context.Context, email, displayName string) (_ Begin, err error) {
	ctx, span := e.startSpan(ctx, "BeginRegistration")
	defer func() { endSpan(span, err) }()

	base, err := e.findOrCreateUser(ctx, email, displayName)
	if err != nil {
		return Begin{}, err
	}
	spanUser(span, base)

	waUser, _, err := e.loadWebAuthnUser(ctx, base)
	if err != nil {
		return Begin{}, err
	}

	options := []webauthn.RegistrationOption{
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		}),
	}
	if len(waUser.credentials) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(waUser.credentials).CredentialDescriptors()))
	}

	creation, session, err := e.webauthn.BeginRegistration(waUser, options...)
	if err != nil {
		return Begin{}, fmt.Errorf("begin registration: %w", err)
	}
	expiresAt, err := e.storeChallenge(ctx, base.ID, passkey.SessionKindRegistration, session)
	if err != nil {
		return Begin{}, err
	}
	optionsJSON, err := json.Marshal(creation)
	if err != nil {
		return Begin{}, fmt.Errorf("encode registration options: %w", err)
	}

	return Begin{
		Options:   optionsJSON,
		Challenge: session.Challenge,
		User:      base,
		ExpiresAt: expiresAt,
	}, nil
}

func (e *Engine) findOrCreateUser(ctx context.Context, rawEmail, displayName string) (user.User, error) {
	email, err := user.NormalizeEmail(rawEmail)
	if err != nil {
		return user.User{}, err
	}
	found, err := e.users.FindUserByEmail(ctx, email)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, fmt.Errorf("find user: %w", err)
	}

	created, err := user.CreateUser(user.CreateUserInput{Email: email, DisplayName: displayName}, e.clock, e.idGenerator)
	if err != nil {
		return user.User{}, err
	}
	if err := e.users.CreateUser(ctx, created); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			// Lost a race with a concurrent registration for the same email.
			found, findErr := e.users.FindUserByEmail(ctx, email)
			if findErr == nil {
				return found, nil
			}
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// CompleteRegistration verifies the browser's attestation response and
// stores the new credential.
func (e *Engine) CompleteRegistration(ctx context.Context, email string, response []byte) (_ Result, err error) {
	ctx, span := e.startSpan(ctx, "CompleteRegistration")
	defer func() { endSpan(span, err) }()

	base, err := e.findUser(ctx, email)
	if err != nil {
		return Result{}, err
	}
	spanUser(span, base)

	session, err := e.takeChallenge(ctx, base.ID, passkey.SessionKindRegistration)
	if err != nil {
		return Result{}, err
	}

	response = trimResponse(response)
	if len(response) == 0 {
		return Result{}, ErrResponseRequired
	}
	parsed, err := e.parser.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return Result{}, assertionError("parse credential response", err)
	}

	waUser, _, err := e.loadWebAuthnUser(ctx, base)
	if err != nil {
		return Result{}, err
	}
	credential, err := e.webauthn.CreateCredential(waUser, session, parsed)
	if err != nil {
		return Result{}, assertionError("verify credential response", err)
	}

	credentialJSON, err := json.Marshal(credential)
	if err != nil {
		return Result{}, fmt.Errorf("encode credential: %w", err)
	}
	if err := e.credentials.InsertCredential(ctx, storage.Credential{
		ID:             credential.ID,
		UserID:         base.ID,
		PublicKey:      credential.PublicKey,
		SignCount:      credential.Authenticator.SignCount,
		CredentialJSON: string(credentialJSON),
		CreatedAt:      e.now(),
	}); err != nil {
		if errors.Is(err, storage.ErrCredentialExists) {
			return Result{}, storage.ErrCredentialExists
		}
		return Result{}, fmt.Errorf("store credential: %w", err)
	}

	return Result{User: base, CredentialID: encodeCredentialID(credential.ID)}, nil
}
