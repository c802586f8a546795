package model

import (
	"encoding/json"
	"strings"
)

const (
	ApplicationPending  = "Pending"
	ApplicationApproved = "Approved"
	ApplicationRejected = "Rejected"
)

type Adopter struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Application struct {
	ID             int      `json:"application_id"`
	Status         string   `json:"application_status"`
	SubmissionDate string   `json:"submission_date"`
	PetID          int      `json:"pet_id"`
	PetName        string   `json:"pet_name"`
	Message        string   `json:"message,omitempty"`
	Adopter        *Adopter `json:"adopter_user,omitempty"`
}

func (a Application) Validate() error {
	if a.ID <= 0 {
		return malformed("application without application_id")
	}
	return nil
}

type ApplicationRequest struct {
	PetID   int    `json:"pet_id"`
	Message string `json:"message,omitempty"`
}

func (r ApplicationRequest) Validate() error {
	if r.PetID <= 0 {
		return ErrInvalidInput
	}
	return nil
}

type ApplicationStatusPatch struct {
	Status string `json:"application_status"`
}

func (p ApplicationStatusPatch) Validate() error {
	switch p.Status {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return nil
	default:
		return ErrInvalidInput
	}
}

type Favourite struct {
	ID  int `json:"id"`
	Pet Pet `json:"pet"`
}

func (f Favourite) Validate() error {
	if f.ID <= 0 {
		return malformed("favourite without id")
	}
	return f.Pet.Validate()
}

type Donation struct {
	ID           int         `json:"fundId"`
	ShelterID    int         `json:"shelter_id"`
	Amount       json.Number `json:"amount"`
	DonationDate string      `json:"donation_date,omitempty"`
}

func (d Donation) Validate() error {
	if d.ID <= 0 {
		return malformed("donation without fundId")
	}
	return nil
}

// DonationRequest forwards the card tokenized by the payment processor; the
// card itself never reaches this service.
type DonationRequest struct {
	ShelterID       int     `json:"shelter_id"`
	Amount          float64 `json:"amount"`
	PaymentMethodID string  `json:"payment_method_id"`
}

func (r DonationRequest) Validate() error {
	if r.ShelterID <= 0 || r.Amount <= 0 || strings.TrimSpace(r.PaymentMethodID) == "" {
		return ErrInvalidInput
	}
	return nil
}
