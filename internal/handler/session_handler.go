package handler

import (
	"net/http"
	"strings"

	"adoptify-web/internal/model"
	"adoptify-web/internal/service"
	"adoptify-web/internal/session"
	"adoptify-web/pkg/apierror"
)

type SessionHandler struct {
	sessions  *service.SessionService
	adoptions *service.AdoptionService
}

func NewSessionHandler(sessions *service.SessionService, adoptions *service.AdoptionService) *SessionHandler {
	return &SessionHandler{sessions: sessions, adoptions: adoptions}
}

func (h *SessionHandler) Home(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sessions.Summary(r.Context(), storeFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.HomePage{Session: summary}, nil)
}

// Login signs the session in and redirects by role. Bad credentials stay on
// the page with an inline 401. A successful login gets a new session id.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	ctx, store, commit := session.Renew(r.Context())
	if store == nil {
		writeError(w, apierror.Internal("session unavailable"))
		return
	}

	target, err := h.sessions.Login(ctx, store, strings.TrimSpace(payload.Username), payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	commit()

	writeRedirect(w, target)
}

func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(payload.Email)

	if err := h.sessions.Register(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]string{
		"message":  "account created, please sign in",
		"username": payload.Username,
	}, nil)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	if store == nil {
		writeError(w, apierror.Internal("session unavailable"))
		return
	}

	target, err := h.sessions.Logout(r.Context(), store)
	if err != nil {
		writeError(w, err)
		return
	}

	writeRedirect(w, target)
}

// Profile assembles the profile page: the user's details, favourites and
// applications.
func (h *SessionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := storeFrom(r)

	profile, err := h.sessions.Profile(ctx, store)
	if err != nil {
		writeError(w, err)
		return
	}

	favourites, err := h.adoptions.Favourites(ctx, store)
	if err != nil {
		writeError(w, err)
		return
	}

	applications, err := h.adoptions.Applications(ctx, store)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.sessions.Summary(ctx, store)
	if err != nil {
		writeError(w, err)
		return
	}

	if favourites == nil {
		favourites = []model.Favourite{}
	}
	if applications == nil {
		applications = []model.Application{}
	}

	writeSuccess(w, http.StatusOK, model.ProfilePage{
		Session:      summary,
		Profile:      profile,
		Favourites:   favourites,
		Applications: applications,
	}, nil)
}
