package handler

import (
	"net/http"

	"adoptify-web/internal/model"
	"adoptify-web/internal/service"
)

type ShelterHandler struct {
	shelters *service.ShelterService
}

func NewShelterHandler(shelters *service.ShelterService) *ShelterHandler {
	return &ShelterHandler{shelters: shelters}
}

func (h *ShelterHandler) List(w http.ResponseWriter, r *http.Request) {
	shelters, err := h.shelters.List(r.Context(), storeFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, shelters, &model.Meta{Total: len(shelters)})
}

func (h *ShelterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	shelter, err := h.shelters.Get(r.Context(), storeFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, shelter, nil)
}

func (h *ShelterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.ShelterRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	shelter, err := h.shelters.Create(r.Context(), storeFrom(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, shelter, nil)
}

func (h *ShelterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.ShelterRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	shelter, err := h.shelters.Update(r.Context(), storeFrom(r), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, shelter, nil)
}

func (h *ShelterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.shelters.Delete(r.Context(), storeFrom(r), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
