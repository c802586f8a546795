package handler

import (
	"net/http"

	"adoptify-web/internal/model"
	"adoptify-web/internal/service"
)

type PetHandler struct {
	pets *service.PetService
}

func NewPetHandler(pets *service.PetService) *PetHandler {
	return &PetHandler{pets: pets}
}

// List serves the public catalogue, filtered by the pet_type, gender and
// adoption_status query parameters.
func (h *PetHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.PetFilter{
		PetType:        query.Get("pet_type"),
		Gender:         query.Get("gender"),
		AdoptionStatus: query.Get("adoption_status"),
	}

	pets, err := h.pets.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pets, &model.Meta{Total: len(pets)})
}

func (h *PetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	pet, err := h.pets.Get(r.Context(), storeFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pet, nil)
}

func (h *PetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.PetRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	pet, err := h.pets.Create(r.Context(), storeFrom(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, pet, nil)
}

func (h *PetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.PetRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	pet, err := h.pets.Update(r.Context(), storeFrom(r), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pet, nil)
}

func (h *PetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.pets.Delete(r.Context(), storeFrom(r), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
