package ceremony

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/user"
)

// webauthnUser adapts a stored user and its credentials to webauthn.User.
type webauthnUser struct {
	user        user.User
	credentials []webauthn.Credential
}

func (u *webauthnUser) WebAuthnID() []byte {
	return []byte(u.user.ID)
}

func (u *webauthnUser) WebAuthnName() string {
	return u.user.Email
}

func (u *webauthnUser) WebAuthnDisplayName() string {
	return u.user.DisplayName
}

func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

// decodeStoredCredentials rebuilds library credentials from stored records.
// The stored sign count column wins over the counter embedded in the JSON.
func decodeStoredCredentials(records []storage.Credential) ([]webauthn.Credential, error) {
	if len(records) == 0 {
		return nil, nil
	}
	credentials := make([]webauthn.Credential, 0, len(records))
	for _, record := range records {
		var credential webauthn.Credential
		if err := json.Unmarshal([]byte(record.CredentialJSON), &credential); err != nil {
			return nil, fmt.Errorf("decode credential %s: %w", encodeCredentialID(record.ID), err)
		}
		credential.ID = record.ID
		if len(record.PublicKey) > 0 {
			credential.PublicKey = record.PublicKey
		}
		credential.Authenticator.SignCount = record.SignCount
		credentials = append(credentials, credential)
	}
	return credentials, nil
}

func findRecord(records []storage.Credential, credentialID []byte) (storage.Credential, bool) {
	for _, record := range records {
		if bytes.Equal(record.ID, credentialID) {
			return record, true
		}
	}
	return storage.Credential{}, false
}
