package handler

import (
	"net/http"

	"adoptify-web/internal/model"
	"adoptify-web/internal/service"
)

var adminLinks = []string{
	"/admin/pets",
	"/admin/shelters",
	"/admin/applications",
}

type AdminHandler struct {
	sessions *service.SessionService
}

func NewAdminHandler(sessions *service.SessionService) *AdminHandler {
	return &AdminHandler{sessions: sessions}
}

// Dashboard is reached only through the admin policy, so it makes no API
// call of its own.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sessions.Summary(r.Context(), storeFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	links := make([]string, len(adminLinks))
	copy(links, adminLinks)

	writeSuccess(w, http.StatusOK, model.AdminDashboardPage{
		Session: summary,
		Links:   links,
	}, nil)
}
