package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/daybook/internal/platform/errors"
	"github.com/louisbranch/daybook/internal/services/auth/ceremony"
	"github.com/louisbranch/daybook/internal/services/auth/session"
	"github.com/louisbranch/daybook/internal/services/auth/storage"
	"github.com/louisbranch/daybook/internal/services/auth/user"
	"github.com/louisbranch/daybook/internal/services/web/platform/httpx"
	"github.com/louisbranch/daybook/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/daybook/internal/services/web/routepath"
)

type handlers struct {
	ceremonies Ceremonies
	users      Users
	issuer     SessionIssuer
	verifier   session.TokenVerifier
	cookie     sessioncookie.Policy
}

type userPayload struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newUserPayload(u user.User) userPayload {
	return userPayload{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

type beginPayload struct {
	Options   json.RawMessage `json:"options"`
	User      userPayload     `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type finishRequest struct {
	Email      string          `json:"email"`
	Credential json.RawMessage `json:"credential"`
	Next       string          `json:"next"`
}

type finishPayload struct {
	User       userPayload `json:"user"`
	RedirectTo string      `json:"redirectTo"`
}

type sessionPayload struct {
	Authenticated bool         `json:"authenticated"`
	User          *userPayload `json:"user,omitempty"`
}

func writeBegin(w http.ResponseWriter, begin ceremony.Begin) {
	_ = httpx.WriteJSON(w, http.StatusOK, beginPayload{
		Options:   begin.Options,
		User:      newUserPayload(begin.User),
		ExpiresAt: begin.ExpiresAt,
	})
}

func (h *handlers) handleRegisterBegin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	begin, err := h.ceremonies.BeginRegistration(r.Context(), payload.Email, payload.DisplayName)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeBegin(w, begin)
}

func (h *handlers) handleRegisterFinish(w http.ResponseWriter, r *http.Request) {
	var payload finishRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	result, err := h.ceremonies.CompleteRegistration(r.Context(), payload.Email, payload.Credential)
	if err != nil {
		h.logCeremonyFailure(r, "register", err)
		httpx.WriteError(w, r, err)
		return
	}
	log.Printf("passkey registered user_id=%s credential_id=%s request_id=%s", result.User.ID, result.CredentialID, httpx.RequestIDFrom(r))
	h.startSession(w, r, result.User, payload.Next)
}

func (h *handlers) handleLoginBegin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	begin, err := h.ceremonies.BeginAuthentication(r.Context(), payload.Email)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeBegin(w, begin)
}

func (h *handlers) handleLoginFinish(w http.ResponseWriter, r *http.Request) {
	var payload finishRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	result, err := h.ceremonies.CompleteAuthentication(r.Context(), payload.Email, payload.Credential)
	if err != nil {
		h.logCeremonyFailure(r, "login", err)
		httpx.WriteError(w, r, err)
		return
	}
	h.startSession(w, r, result.User, payload.Next)
}

// startSession issues a token for u, sets the cookie, and reports where the
// browser should go next.
func (h *handlers) startSession(w http.ResponseWriter, r *http.Request, u user.User, next string) {
	token, _, err := h.issuer.Issue(u.ID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sessioncookie.Write(w, token, h.cookie)
	_ = httpx.WriteJSON(w, http.StatusOK, finishPayload{
		User:       newUserPayload(u),
		RedirectTo: routepath.SafeNext(next),
	})
}

func (h *handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := sessioncookie.Read(r)
	if !ok {
		_ = httpx.WriteJSON(w, http.StatusOK, sessionPayload{})
		return
	}
	claims, ok := h.verifier.Verify(token)
	if !ok {
		_ = httpx.WriteJSON(w, http.StatusOK, sessionPayload{})
		return
	}
	found, err := h.users.GetUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = httpx.WriteJSON(w, http.StatusOK, sessionPayload{})
			return
		}
		httpx.WriteError(w, r, err)
		return
	}
	out := newUserPayload(found)
	_ = httpx.WriteJSON(w, http.StatusOK, sessionPayload{Authenticated: true, User: &out})
}

// handleLogout only clears the cookie. Issued tokens stay valid until they
// expire.
func (h *handlers) handleLogout(w http.ResponseWriter, _ *http.Request) {
	sessioncookie.Clear(w, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logCeremonyFailure(r *http.Request, kind string, err error) {
	code := apperrors.GetCode(err)
	if code == apperrors.CodeUnknown {
		return
	}
	log.Printf("passkey %s rejected code=%s request_id=%s err=%v", kind, code, httpx.RequestIDFrom(r), err)
}
