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

type ShelterService struct {
	api *apiclient.Client
}

func NewShelterService(api *apiclient.Client) *ShelterService {
	return &ShelterService{api: api}
}

func shelterPath(id int) string {
	return fmt.Sprintf("/api/admin/shelter/%d/", id)
}

func (s *ShelterService) List(ctx context.Context, store session.Store) ([]model.Shelter, error) {
	return apiclient.FetchList[model.Shelter](ctx, s.api, store, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/admin/shelters/",
		Auth:   true,
	})
}

func (s *ShelterService) Get(ctx context.Context, store session.Store, id int) (model.Shelter, error) {
	if id <= 0 {
		return model.Shelter{}, invalidID("shelter", id)
	}
	return apiclient.Fetch[model.Shelter](ctx, s.api, store, apiclient.Request{
		Method: http.MethodGet,
		Path:   shelterPath(id),
		Auth:   true,
	})
}

func (s *ShelterService) Create(ctx context.Context, store session.Store, req model.ShelterRequest) (model.Shelter, error) {
	if err := req.Validate(); err != nil {
		return model.Shelter{}, apierror.BadRequest("shelter name is required", "")
	}
	return apiclient.Fetch[model.Shelter](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/admin/shelter/",
		Body:   req,
		Auth:   true,
	})
}

func (s *ShelterService) Update(ctx context.Context, store session.Store, id int, req model.ShelterRequest) (model.Shelter, error) {
	if id <= 0 {
		return model.Shelter{}, invalidID("shelter", id)
	}
	if err := req.Validate(); err != nil {
		return model.Shelter{}, apierror.BadRequest("shelter name is required", "")
	}
	return apiclient.Fetch[model.Shelter](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPut,
		Path:   shelterPath(id),
		Body:   req,
		Auth:   true,
	})
}

func (s *ShelterService) Delete(ctx context.Context, store session.Store, id int) error {
	if id <= 0 {
		return invalidID("shelter", id)
	}
	_, err := s.api.Do(ctx, store, apiclient.Request{
		Method: http.MethodDelete,
		Path:   shelterPath(id),
		Auth:   true,
	})
	return err
}
