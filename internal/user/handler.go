package user

import (
	"log/slog"
	"net/http"

	"github.com/VivaainNg/finance-tracker/internal/auth"
	"github.com/VivaainNg/finance-tracker/internal/transport"
	"github.com/VivaainNg/finance-tracker/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
}

func NewHandler() *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{BaseHandler: transport.NewBaseHandler(lg)}
}

// GetCurrentUser echoes the authenticated principal back to the client.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}
