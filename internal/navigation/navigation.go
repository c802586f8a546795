// Package navigation maps guard decisions and session flows to the route the
// browser is sent to next.
package navigation

import (
	"adoptify-web/internal/guard"
	"adoptify-web/internal/session"
)

type Target string

const (
	Home           Target = "/"
	Login          Target = "/login"
	AdminDashboard Target = "/admin-dashboard"
)

func (t Target) String() string {
	return string(t)
}

// ForDecision returns where a denied visitor goes. ok is false when the
// decision allows the route.
func ForDecision(d guard.Decision) (target Target, ok bool) {
	if d.Allowed {
		return "", false
	}
	switch d.Reason {
	case guard.ReasonNotAdmin:
		return Home, true
	default:
		return Login, true
	}
}

func AfterLogin(role session.Role) Target {
	switch role {
	case session.RoleAdmin:
		return AdminDashboard
	default:
		return Home
	}
}

func AfterLogout() Target {
	return Home
}

func AfterSessionExpired() Target {
	return Login
}
