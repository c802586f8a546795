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

type PetService struct {
	api *apiclient.Client
}

func NewPetService(api *apiclient.Client) *PetService {
	return &PetService{api: api}
}

func petPath(id int) string {
	return fmt.Sprintf("/api/pets/%d/", id)
}

// List returns every pet matching filter. The API has no query filters, so
// filtering happens here.
func (s *PetService) List(ctx context.Context, filter model.PetFilter) ([]model.Pet, error) {
	pets, err := apiclient.FetchList[model.Pet](ctx, s.api, nil, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/pets/",
	})
	if err != nil {
		return nil, err
	}

	matched := make([]model.Pet, 0, len(pets))
	for _, pet := range pets {
		if filter.Match(pet) {
			matched = append(matched, pet)
		}
	}
	return matched, nil
}

func (s *PetService) Get(ctx context.Context, store session.Store, id int) (model.Pet, error) {
	if id <= 0 {
		return model.Pet{}, invalidID("pet", id)
	}
	return apiclient.Fetch[model.Pet](ctx, s.api, store, apiclient.Request{
		Method: http.MethodGet,
		Path:   petPath(id),
		Auth:   true,
	})
}

func (s *PetService) Create(ctx context.Context, store session.Store, req model.PetRequest) (model.Pet, error) {
	if err := req.Validate(); err != nil {
		return model.Pet{}, apierror.BadRequest("name and shelter_id are required", "")
	}
	if req.AdoptionStatus == "" {
		req.AdoptionStatus = model.PetStatusAvailable
	}
	return apiclient.Fetch[model.Pet](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/register-pet/",
		Body:   req,
		Auth:   true,
	})
}

func (s *PetService) Update(ctx context.Context, store session.Store, id int, req model.PetRequest) (model.Pet, error) {
	if id <= 0 {
		return model.Pet{}, invalidID("pet", id)
	}
	if err := req.Validate(); err != nil {
		return model.Pet{}, apierror.BadRequest("name and shelter_id are required", "")
	}
	return apiclient.Fetch[model.Pet](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPut,
		Path:   petPath(id),
		Body:   req,
		Auth:   true,
	})
}

// SetStatus changes only the adoption status of a pet.
func (s *PetService) SetStatus(ctx context.Context, store session.Store, id int, status string) error {
	switch status {
	case model.PetStatusAvailable, model.PetStatusAdopted, model.PetStatusPending:
	default:
		return apierror.BadRequest("unknown adoption status", status)
	}

	_, err := s.api.Do(ctx, store, apiclient.Request{
		Method: http.MethodPatch,
		Path:   petPath(id),
		Body:   model.PetStatusPatch{AdoptionStatus: status},
		Auth:   true,
	})
	return err
}

func (s *PetService) Delete(ctx context.Context, store session.Store, id int) error {
	if id <= 0 {
		return invalidID("pet", id)
	}
	_, err := s.api.Do(ctx, store, apiclient.Request{
		Method: http.MethodDelete,
		Path:   petPath(id),
		Auth:   true,
	})
	return err
}

func invalidID(kind string, id int) error {
	return apierror.BadRequest("invalid "+kind+" id", fmt.Sprint(id))
}
