package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"adoptify-web/internal/model"
)

type contextKey struct{}

type application struct {
	model.Application
	owner string
}

func currentUser(r *http.Request) string {
	username, _ := r.Context().Value(contextKey{}).(string)
	return username
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		c, err := s.validate(raw, "access")
		s.mu.Lock()
		stale := err == nil && c.generation != s.generation
		_, known := s.users[c.username]
		s.mu.Unlock()
		if err != nil || stale || !known {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, c.username)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		role := s.users[currentUser(r)].profile.Role
		s.mu.Unlock()

		if role != "admin" {
			writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddShelter stores shelter and returns it with its assigned id.
func (s *Server) AddShelter(shelter model.Shelter) model.Shelter {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelter.ID = s.allocIDLocked()
	s.shelters[shelter.ID] = shelter
	return shelter
}

// AddPet stores pet and returns it with its assigned id.
func (s *Server) AddPet(pet model.Pet) model.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()

	pet.ID = s.allocIDLocked()
	if pet.AdoptionStatus == "" {
		pet.AdoptionStatus = model.PetStatusAvailable
	}
	if shelter, ok := s.shelters[pet.ShelterID]; ok {
		pet.ShelterName = shelter.Name
	}
	s.pets[pet.ID] = pet
	return pet
}

func (s *Server) Pet(id int) (model.Pet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pet, ok := s.pets[id]
	return pet, ok
}

func (s *Server) Donations() []model.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Donation(nil), s.donations...)
}

func (s *Server) allocIDLocked() int {
	id := s.nextID
	s.nextID++
	return id
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (s *Server) handleListPets(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pets := make([]model.Pet, 0, len(s.pets))
	for id := 1; id < s.nextID; id++ {
		if pet, ok := s.pets[id]; ok {
			pets = append(pets, pet)
		}
	}
	writeJSON(w, http.StatusOK, pets)
}

func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pet, exists := s.pets[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	var req model.PetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Validate() != nil {
		writeDetail(w, http.StatusBadRequest, "name is required")
		return
	}

	pet := s.AddPet(petFromRequest(req))
	writeJSON(w, http.StatusCreated, pet)
}

func (s *Server) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.PetRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pets[id]; !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	pet := petFromRequest(req)
	pet.ID = id
	if shelter, ok := s.shelters[pet.ShelterID]; ok {
		pet.ShelterName = shelter.Name
	}
	s.pets[id] = pet
	writeJSON(w, http.StatusOK, pet)
}

func (s *Server) handlePatchPet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.PetStatusPatch
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pet, exists := s.pets[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	pet.AdoptionStatus = patch.AdoptionStatus
	s.pets[id] = pet
	writeJSON(w, http.StatusOK, pet)
}

func (s *Server) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pets[id]; !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	delete(s.pets, id)
	w.WriteHeader(http.StatusNoContent)
}

func petFromRequest(req model.PetRequest) model.Pet {
	return model.Pet{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Domesticated:   req.Domesticated,
		AdoptionStatus: req.AdoptionStatus,
		PetType:        req.PetType,
		ShelterID:      req.ShelterID,
	}
}

func (s *Server) handleListShelters(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelters := make([]model.Shelter, 0, len(s.shelters))
	for id := 1; id < s.nextID; id++ {
		if shelter, ok := s.shelters[id]; ok {
			shelters = append(shelters, shelter)
		}
	}
	writeJSON(w, http.StatusOK, shelters)
}

func (s *Server) handleGetShelter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shelter, exists := s.shelters[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, shelter)
}

func (s *Server) handleCreateShelter(w http.ResponseWriter, r *http.Request) {
	var req model.ShelterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Validate() != nil {
		writeDetail(w, http.StatusBadRequest, "name is required")
		return
	}

	shelter := s.AddShelter(shelterFromRequest(req))
	writeJSON(w, http.StatusCreated, shelter)
}

func (s *Server) handleUpdateShelter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.ShelterRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shelters[id]; !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	shelter := shelterFromRequest(req)
	shelter.ID = id
	s.shelters[id] = shelter
	writeJSON(w, http.StatusOK, shelter)
}

func (s *Server) handleDeleteShelter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shelters[id]; !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	delete(s.shelters, id)
	w.WriteHeader(http.StatusNoContent)
}

func shelterFromRequest(req model.ShelterRequest) model.Shelter {
	return model.Shelter{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		WebsiteURL:  req.WebsiteURL,
	}
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req model.ApplicationRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pet, exists := s.pets[req.PetID]
	if !exists {
		writeDetail(w, http.StatusBadRequest, "Invalid pet.")
		return
	}

	username := currentUser(r)
	profile := s.users[username].profile
	app := application{
		owner: username,
		Application: model.Application{
			ID:             s.allocIDLocked(),
			Status:         model.ApplicationPending,
			SubmissionDate: time.Now().UTC().Format("2006-01-02"),
			PetID:          pet.ID,
			PetName:        pet.Name,
			Message:        req.Message,
			Adopter:        &model.Adopter{FirstName: profile.FirstName, LastName: profile.LastName},
		},
	}
	s.applications[app.ID] = app
	writeJSON(w, http.StatusCreated, app.Application)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := currentUser(r)
	admin := s.users[username].profile.Role == "admin"

	apps := make([]model.Application, 0, len(s.applications))
	for id := 1; id < s.nextID; id++ {
		app, ok := s.applications[id]
		if !ok || (!admin && app.owner != username) {
			continue
		}
		apps = append(apps, app.Application)
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleUpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch model.ApplicationStatusPatch
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app, exists := s.applications[id]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	app.Status = patch.Status
	s.applications[id] = app
	writeJSON(w, http.StatusOK, app.Application)
}

func (s *Server) handleListFavourites(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favourites := append([]model.Favourite{}, s.favourites[currentUser(r)]...)
	writeJSON(w, http.StatusOK, favourites)
}

func (s *Server) handleAddFavourite(w http.ResponseWriter, r *http.Request) {
	petID, ok := pathID(w, r, "petID")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pet, exists := s.pets[petID]
	if !exists {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	username := currentUser(r)
	for _, fav := range s.favourites[username] {
		if fav.Pet.ID == petID {
			writeDetail(w, http.StatusBadRequest, "Pet is already in favourites.")
			return
		}
	}

	fav := model.Favourite{ID: s.allocIDLocked(), Pet: pet}
	s.favourites[username] = append(s.favourites[username], fav)
	writeJSON(w, http.StatusCreated, fav)
}

func (s *Server) handleRemoveFavourite(w http.ResponseWriter, r *http.Request) {
	petID, ok := pathID(w, r, "petID")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username := currentUser(r)
	favourites := s.favourites[username]
	for i, fav := range favourites {
		if fav.Pet.ID == petID {
			s.favourites[username] = append(favourites[:i:i], favourites[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Not found.")
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	var req model.DonationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Validate() != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid donation.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shelters[req.ShelterID]; !exists {
		writeDetail(w, http.StatusBadRequest, "Invalid shelter.")
		return
	}

	donation := model.Donation{
		ID:           s.allocIDLocked(),
		ShelterID:    req.ShelterID,
		Amount:       json.Number(strconv.FormatFloat(req.Amount, 'f', 2, 64)),
		DonationDate: time.Now().UTC().Format(time.RFC3339),
	}
	s.donations = append(s.donations, donation)
	writeJSON(w, http.StatusCreated, donation)
}
