package service

import (
	"context"
	"fmt"
	"net/http"

	"adoptify-web/internal/apiclient"
	"adoptify-web/internal/model"
	"adoptify-web/internal/session"
	"adoptify-web/pkg/apierror"
)

// AdoptionService covers adoption applications and favourites.
type AdoptionService struct {
	api  *apiclient.Client
	pets *PetService
}

func NewAdoptionService(api *apiclient.Client, pets *PetService) *AdoptionService {
	return &AdoptionService{api: api, pets: pets}
}

func (s *AdoptionService) Apply(ctx context.Context, store session.Store, req model.ApplicationRequest) (model.Application, error) {
	if err := req.Validate(); err != nil {
		return model.Application{}, apierror.BadRequest("pet_id is required", "")
	}
	return apiclient.Fetch[model.Application](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/adoption-application/",
		Body:   req,
		Auth:   true,
	})
}

// Applications lists the caller's applications, or all of them for an admin.
func (s *AdoptionService) Applications(ctx context.Context, store session.Store) ([]model.Application, error) {
	return apiclient.FetchList[model.Application](ctx, s.api, store, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/adoption-application/list/",
		Auth:   true,
	})
}

// UpdateStatus records an admin decision. Approving marks the pet Adopted and
// rejecting puts it back to Available.
func (s *AdoptionService) UpdateStatus(ctx context.Context, store session.Store, id int, status string) (model.Application, error) {
	if id <= 0 {
		return model.Application{}, invalidID("application", id)
	}
	patch := model.ApplicationStatusPatch{Status: status}
	if err := patch.Validate(); err != nil {
		return model.Application{}, apierror.BadRequest("unknown application status", status)
	}

	app, err := apiclient.Fetch[model.Application](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("/api/adoption-application/%d/update-status/", id),
		Body:   patch,
		Auth:   true,
	})
	if err != nil {
		return model.Application{}, err
	}

	var petStatus string
	switch status {
	case model.ApplicationApproved:
		petStatus = model.PetStatusAdopted
	case model.ApplicationRejected:
		petStatus = model.PetStatusAvailable
	default:
		return app, nil
	}

	if app.PetID <= 0 {
		return app, nil
	}
	if err := s.pets.SetStatus(ctx, store, app.PetID, petStatus); err != nil {
		return app, fmt.Errorf("update pet %d status: %w", app.PetID, err)
	}
	return app, nil
}

func (s *AdoptionService) Favourites(ctx context.Context, store session.Store) ([]model.Favourite, error) {
	return apiclient.FetchList[model.Favourite](ctx, s.api, store, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/favourite/list/",
		Auth:   true,
	})
}

func (s *AdoptionService) AddFavourite(ctx context.Context, store session.Store, petID int) error {
	if petID <= 0 {
		return invalidID("pet", petID)
	}
	_, err := s.api.Do(ctx, store, apiclient.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/api/favourite/%d/", petID),
		Auth:   true,
	})
	return err
}

func (s *AdoptionService) RemoveFavourite(ctx context.Context, store session.Store, petID int) error {
	if petID <= 0 {
		return invalidID("pet", petID)
	}
	_, err := s.api.Do(ctx, store, apiclient.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/api/favourite/%d/remove/", petID),
		Auth:   true,
	})
	return err
}
