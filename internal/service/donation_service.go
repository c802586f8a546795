package service

import (
	"context"
	"net/http"

	"adoptify-web/internal/apiclient"
	"adoptify-web/internal/model"
	"adoptify-web/internal/session"
	"adoptify-web/pkg/apierror"
)

type DonationService struct {
	api *apiclient.Client
}

func NewDonationService(api *apiclient.Client) *DonationService {
	return &DonationService{api: api}
}

// Donate forwards a tokenized payment to the API.
func (s *DonationService) Donate(ctx context.Context, store session.Store, req model.DonationRequest) (model.Donation, error) {
	if err := req.Validate(); err != nil {
		return model.Donation{}, apierror.BadRequest("shelter_id, a positive amount and payment_method_id are required", "")
	}
	return apiclient.Fetch[model.Donation](ctx, s.api, store, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/donate/",
		Body:   req,
		Auth:   true,
	})
}
