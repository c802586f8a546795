package model

import "strings"

const (
	PetStatusAvailable = "Available"
	PetStatusAdopted   = "Adopted"
	PetStatusPending   = "Pending"
)

type Pet struct {
	ID             int    `json:"pet_id"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	Domesticated   bool   `json:"domesticated"`
	AdoptionStatus string `json:"adoption_status"`
	PetType        string `json:"pet_type"`
	ShelterID      int    `json:"shelter_id"`
	ShelterName    string `json:"shelter_name,omitempty"`
	Image          string `json:"image,omitempty"`
}

func (p Pet) Validate() error {
	if p.ID <= 0 {
		return malformed("pet without pet_id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return malformed("pet %d without name", p.ID)
	}
	return nil
}

// PetFilter narrows a pet listing. Empty fields match everything.
type PetFilter struct {
	PetType        string
	Gender         string
	AdoptionStatus string
}

func (f PetFilter) Match(p Pet) bool {
	return matchField(f.PetType, p.PetType) &&
		matchField(f.Gender, p.Gender) &&
		matchField(f.AdoptionStatus, p.AdoptionStatus)
}

func matchField(want string, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, got)
}

type PetRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	Domesticated   bool   `json:"domesticated"`
	AdoptionStatus string `json:"adoption_status"`
	PetType        string `json:"pet_type"`
	ShelterID      int    `json:"shelter_id"`
}

func (r PetRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || r.ShelterID <= 0 {
		return ErrInvalidInput
	}
	return nil
}

type PetStatusPatch struct {
	AdoptionStatus string `json:"adoption_status"`
}

type Shelter struct {
	ID          int    `json:"shelter_id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	WebsiteURL  string `json:"website_url,omitempty"`
}

func (s Shelter) Validate() error {
	if s.ID <= 0 {
		return malformed("shelter without shelter_id")
	}
	if strings.TrimSpace(s.Name) == "" {
		return malformed("shelter %d without name", s.ID)
	}
	return nil
}

type ShelterRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	WebsiteURL  string `json:"website_url,omitempty"`
}

func (r ShelterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidInput
	}
	return nil
}
