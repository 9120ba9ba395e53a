package ceremony

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/louisbranch/daybook/internal/services/auth/passkey"
)

// BeginAuthentication starts a sign-in for email. The allow list carries
// every credential the user owns.
func (e *Engine) BeginAuthentication(ctx context.Context, email string) (_ Begin, err error) {
	ctx, span := e.startSpan(ctx, "BeginAuthentication")
	defer func() { endSpan(span, err) }()

	base, err := e.findUser(ctx, email)
	if err != nil {
		return Begin{}, err
	}
	spanUser(span, base)

	waUser, _, err := e.loadWebAuthnUser(ctx, base)
	if err != nil {
		return Begin{}, err
	}
	if len(waUser.credentials) == 0 {
		return Begin{}, ErrNoCredentials
	}

	assertion, session, err := e.webauthn.BeginLogin(waUser, webauthn.WithUserVerification(protocol.VerificationPreferred))
	if err != nil {
		return Begin{}, fmt.Errorf("begin login: %w", err)
	}
	expiresAt, err := e.storeChallenge(ctx, base.ID, passkey.SessionKindAuthentication, session)
	if err != nil {
		return Begin{}, err
	}
	optionsJSON, err := json.Marshal(assertion)
	if err != nil {
		return Begin{}, fmt.Errorf("encode login options: %w", err)
	}

	return Begin{
		Options:   optionsJSON,
		Challenge: session.Challenge,
		User:      base,
		ExpiresAt: expiresAt,
	}, nil
}

// CompleteAuthentication verifies the browser's assertion and advances the
// credential's signature counter.
func (e *Engine) CompleteAuthentication(ctx context.Context, email string, response []byte) (_ Result, err error) {
	ctx, span := e.startSpan(ctx, "CompleteAuthentication")
	defer func() { endSpan(span, err) }()

	base, err := e.findUser(ctx, email)
	if err != nil {
		return Result{}, err
	}
	spanUser(span, base)

	session, err := e.takeChallenge(ctx, base.ID, passkey.SessionKindAuthentication)
	if err != nil {
		return Result{}, err
	}

	response = trimResponse(response)
	if len(response) == 0 {
		return Result{}, ErrResponseRequired
	}
	parsed, err := e.parser.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return Result{}, assertionError("parse assertion response", err)
	}

	waUser, records, err := e.loadWebAuthnUser(ctx, base)
	if err != nil {
		return Result{}, err
	}
	record, ok := findRecord(records, parsed.RawID)
	if !ok {
		return Result{}, ErrUnknownCredential
	}

	if _, err := e.webauthn.ValidateLogin(waUser, session, parsed); err != nil {
		return Result{}, assertionError("verify assertion", err)
	}

	asserted := parsed.Response.AuthenticatorData.Counter
	if !(record.SignCount == 0 && asserted == 0) && asserted <= record.SignCount {
		log.Printf("credential counter regression user_id=%s credential_id=%s stored=%d asserted=%d",
			base.ID, encodeCredentialID(record.ID), record.SignCount, asserted)
		return Result{}, ErrCounterRegression
	}
	if err := e.credentials.UpdateCredentialCounter(ctx, record.ID, asserted, e.now()); err != nil {
		return Result{}, fmt.Errorf("update credential counter: %w", err)
	}

	return Result{User: base, CredentialID: encodeCredentialID(record.ID)}, nil
}
