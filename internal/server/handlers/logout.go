package handlers

import (
	"net/http"

	"galactic-server/internal/shared/cookies"
)

type LogoutHandler struct {
	settings cookies.Settings
}

func NewLogoutHandler(settings cookies.Settings) *LogoutHandler {
	return &LogoutHandler{settings: settings}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cookies.ClearAuthCookie(w, h.settings)
	w.WriteHeader(http.StatusNoContent)
}
