package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Total int `json:"total"`
}

// SessionSummary is what a page may show about the current session.
type SessionSummary struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role"`
}

type Redirect struct {
	RedirectTo string `json:"redirect_to"`
}

type HomePage struct {
	Session SessionSummary `json:"session"`
}

type ProfilePage struct {
	Session      SessionSummary `json:"session"`
	Profile      Profile        `json:"profile"`
	Favourites   []Favourite    `json:"favourites"`
	Applications []Application  `json:"applications"`
}

type AdminDashboardPage struct {
	Session SessionSummary `json:"session"`
	Links   []string       `json:"links"`
}
