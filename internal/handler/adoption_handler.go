package handler

import (
	"net/http"
	"strings"

	"adoptify-web/internal/model"
	"adoptify-web/internal/service"
)

type AdoptionHandler struct {
	adoptions *service.AdoptionService
	donations *service.DonationService
}

func NewAdoptionHandler(adoptions *service.AdoptionService, donations *service.DonationService) *AdoptionHandler {
	return &AdoptionHandler{adoptions: adoptions, donations: donations}
}

func (h *AdoptionHandler) AddFavourite(w http.ResponseWriter, r *http.Request) {
	petID, err := pathInt(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.adoptions.AddFavourite(r.Context(), storeFrom(r), petID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int{"pet_id": petID}, nil)
}

func (h *AdoptionHandler) RemoveFavourite(w http.ResponseWriter, r *http.Request) {
	petID, err := pathInt(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.adoptions.RemoveFavourite(r.Context(), storeFrom(r), petID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Apply submits an adoption application. The body is optional and only
// carries a message.
func (h *AdoptionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	petID, err := pathInt(r, "petID")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.ApplicationRequest
	if err := decodeOptionalJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	payload.PetID = petID
	payload.Message = strings.TrimSpace(payload.Message)

	app, err := h.adoptions.Apply(r.Context(), storeFrom(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, app, nil)
}

func (h *AdoptionHandler) Donate(w http.ResponseWriter, r *http.Request) {
	var payload model.DonationRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	donation, err := h.donations.Donate(r.Context(), storeFrom(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, donation, nil)
}

// Applications lists every application for the admin review page.
func (h *AdoptionHandler) Applications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.adoptions.Applications(r.Context(), storeFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, apps, &model.Meta{Total: len(apps)})
}

func (h *AdoptionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.ApplicationStatusPatch
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	app, err := h.adoptions.UpdateStatus(r.Context(), storeFrom(r), id, strings.TrimSpace(payload.Status))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, app, nil)
}
