package web

import (
	"net/http"

	"github.com/louisbranch/daybook/internal/platform/requestctx"
	"github.com/louisbranch/daybook/internal/services/web/platform/httpx"
	"github.com/louisbranch/daybook/internal/services/web/routepath"
	"github.com/louisbranch/daybook/internal/services/web/static"
)

func (h *handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, static.LoginPage)
}

// handleHome serves the signed-in landing page. The gate has already
// verified the session and attached the user id.
func (h *handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	if requestctx.UserIDFromContext(r.Context()) == "" {
		httpx.WriteRedirect(w, r, routepath.Login)
		return
	}
	h.writePage(w, r, static.HomePage)
}

func (h *handlers) writePage(w http.ResponseWriter, r *http.Request, name string) {
	page, err := readPage(name)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	_ = httpx.WriteHTML(w, http.StatusOK, page)
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
