package model

import "strings"

type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

func (p TokenPair) Validate() error {
	if strings.TrimSpace(p.AccessToken) == "" {
		return malformed("token pair without access token")
	}
	if strings.TrimSpace(p.RefreshToken) == "" {
		return malformed("token pair without refresh token")
	}
	return nil
}

type AccessToken struct {
	AccessToken string `json:"access"`
}

func (a AccessToken) Validate() error {
	if strings.TrimSpace(a.AccessToken) == "" {
		return malformed("refresh response without access token")
	}
	return nil
}

// Profile is the resolved identity returned by /api/user/details/.
type Profile struct {
	Role        string `json:"role"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return malformed("profile without username")
	}
	switch p.Role {
	case "admin", "user":
		return nil
	default:
		return malformed("profile role %q", p.Role)
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return ErrInvalidInput
	}
	return nil
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Password) == "" {
		return ErrInvalidInput
	}
	for _, c := range r.PhoneNumber {
		if c < '0' || c > '9' {
			return ErrInvalidInput
		}
	}
	return nil
}
