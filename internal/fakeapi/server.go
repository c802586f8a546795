// Package fakeapi is an in-process stand-in for the Adoptify REST API. It
// signs real HS256 tokens, checks bcrypt password hashes and counts every
// call so tests can assert how often the upstream was hit.
package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"adoptify-web/internal/model"
)

type user struct {
	passwordHash []byte
	profile      model.Profile
}

type Server struct {
	secret    []byte
	accessTTL time.Duration

	mu            sync.Mutex
	users         map[string]user
	refreshTokens map[string]string
	generation    int
	calls         map[string]int
	total         int

	refreshDelay  time.Duration
	refreshStatus int
	profileStatus int
	profileRole   *string

	pets         map[int]model.Pet
	shelters     map[int]model.Shelter
	applications map[int]application
	favourites   map[string][]model.Favourite
	donations    []model.Donation
	nextID       int

	router chi.Router
}

func New() *Server {
	s := &Server{
		secret:        []byte(uuid.NewString()),
		accessTTL:     5 * time.Minute,
		users:         map[string]user{},
		refreshTokens: map[string]string{},
		calls:         map[string]int{},
		pets:          map[int]model.Pet{},
		shelters:      map[int]model.Shelter{},
		applications:  map[int]application{},
		favourites:    map[string][]model.Favourite{},
		nextID:        1,
	}
	s.router = s.routes()
	return s
}

// Start serves s on a loopback listener until the test ends.
func Start(t interface{ Cleanup(func()) }) (*Server, *httptest.Server) {
	s := New()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.Method+" "+r.URL.Path]++
	s.total++
	s.mu.Unlock()

	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/api/token/", s.handleLogin)
	r.Post("/api/token/refresh/", s.handleRefresh)
	r.Post("/api/user/register/", s.handleRegister)
	r.Get("/api/pets/", s.handleListPets)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/api/user/details/", s.handleProfile)

		r.Get("/api/pets/{id}/", s.handleGetPet)
		r.Post("/api/adoption-application/", s.handleCreateApplication)
		r.Get("/api/adoption-application/list/", s.handleListApplications)
		r.Get("/api/favourite/list/", s.handleListFavourites)
		r.Post("/api/favourite/{petID}/", s.handleAddFavourite)
		r.Delete("/api/favourite/{petID}/remove/", s.handleRemoveFavourite)
		r.Post("/api/donate/", s.handleDonate)
		r.Get("/api/admin/shelters/", s.handleListShelters)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/api/register-pet/", s.handleCreatePet)
			r.Put("/api/pets/{id}/", s.handleUpdatePet)
			r.Patch("/api/pets/{id}/", s.handlePatchPet)
			r.Delete("/api/pets/{id}/", s.handleDeletePet)
			r.Post("/api/admin/shelter/", s.handleCreateShelter)
			r.Get("/api/admin/shelter/{id}/", s.handleGetShelter)
			r.Put("/api/admin/shelter/{id}/", s.handleUpdateShelter)
			r.Delete("/api/admin/shelter/{id}/", s.handleDeleteShelter)
			r.Patch("/api/adoption-application/{id}/update-status/", s.handleUpdateApplicationStatus)
		})
	})

	return r
}

// AddUser registers an account. role is "admin" or "user".
func (s *Server) AddUser(username string, password string, role string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(username)] = user{
		passwordHash: hash,
		profile: model.Profile{
			Role:      role,
			Username:  username,
			FirstName: strings.ToUpper(username[:1]) + username[1:],
			Email:     username + "@adoptify.test",
		},
	}
}

// IssueTokens mints a token pair for an existing user without a login call.
func (s *Server) IssueTokens(username string) model.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.issueTokenPairLocked(strings.ToLower(username))
	if err != nil {
		panic(err)
	}
	return pair
}

// Calls returns how many requests hit method and path.
func (s *Server) Calls(method string, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// RevokeAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// SetRefreshDelay holds every refresh response for d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores
// normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

func (s *Server) FailProfile(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileStatus = status
}

// OverrideProfileRole makes the profile endpoint report role verbatim, which
// may be a value outside the schema.
func (s *Server) OverrideProfileRole(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileRole = &role
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(req.Username))
	u, ok := s.users[key]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	pair, err := s.issueTokenPairLocked(key)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	delay, forced := s.refreshDelay, s.refreshStatus
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != 0 {
		writeDetail(w, forced, "Token is invalid or expired")
		return
	}

	claims, err := s.validate(req.RefreshToken, "refresh")
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.refreshTokens[req.RefreshToken]
	if !ok || username != claims.username {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	access, err := s.signLocked(username, "access")
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.AccessToken{AccessToken: access})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Validate() != nil {
		writeDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	key := strings.ToLower(strings.TrimSpace(req.Username))

	s.mu.Lock()
	_, exists := s.users[key]
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
		return
	}

	s.AddUser(req.Username, req.Password, "user")

	s.mu.Lock()
	u := s.users[key]
	u.profile.FirstName = req.FirstName
	u.profile.LastName = req.LastName
	u.profile.Email = req.Email
	u.profile.PhoneNumber = req.PhoneNumber
	u.profile.Address = req.Address
	s.users[key] = u
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profileStatus != 0 {
		writeDetail(w, s.profileStatus, "profile unavailable")
		return
	}

	profile := s.users[currentUser(r)].profile
	if s.profileRole != nil {
		profile.Role = *s.profileRole
	}
	writeJSON(w, http.StatusOK, profile)
}

type claims struct {
	username   string
	typ        string
	generation int
}

func (s *Server) issueTokenPairLocked(username string) (model.TokenPair, error) {
	if _, ok := s.users[username]; !ok {
		return model.TokenPair{}, errors.New("unknown user " + username)
	}

	access, err := s.signLocked(username, "access")
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.signLocked(username, "refresh")
	if err != nil {
		return model.TokenPair{}, err
	}

	s.refreshTokens[refresh] = username
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) signLocked(username string, typ string) (string, error) {
	now := time.Now().UTC()
	ttl := s.accessTTL
	if typ == "refresh" {
		ttl = 24 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": s.users[username].profile.Role,
		"typ":  typ,
		"gen":  s.generation,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Server) validate(tokenString string, expectedType string) (claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return claims{}, errors.New("invalid token")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return claims{}, errors.New("invalid token claims")
	}

	var c claims
	c.username, _ = mapClaims["sub"].(string)
	c.typ, _ = mapClaims["typ"].(string)
	if gen, ok := mapClaims["gen"].(float64); ok {
		c.generation = int(gen)
	}
	if c.username == "" || c.typ != expectedType {
		return claims{}, errors.New("invalid token type")
	}
	return c, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
