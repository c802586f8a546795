// Package guard decides whether the current session may view a route. It is
// advisory: the API remains the authority on every request it serves.
package guard

import "adoptify-web/internal/session"

type Policy int

const (
	Public Policy = iota
	RequiresSession
	RequiresAdmin
)

func (p Policy) String() string {
	switch p {
	case Public:
		return "public"
	case RequiresSession:
		return "requires_session"
	case RequiresAdmin:
		return "requires_admin"
	default:
		return "unknown"
	}
}

type State int

const (
	Unauthenticated State = iota
	AuthenticatedUser
	AuthenticatedAdmin
)

func (s State) String() string {
	switch s {
	case AuthenticatedUser:
		return "authenticated_user"
	case AuthenticatedAdmin:
		return "authenticated_admin"
	default:
		return "unauthenticated"
	}
}

// StateOf classifies a session. A present access token is enough to count as
// authenticated; its validity is discovered by the next API call.
func StateOf(s session.Session) State {
	if !s.Authenticated() {
		return Unauthenticated
	}
	if s.Role == session.RoleAdmin {
		return AuthenticatedAdmin
	}
	return AuthenticatedUser
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotAuthenticated
	ReasonNotAdmin
)

func (r Reason) String() string {
	switch r {
	case ReasonNotAuthenticated:
		return "not_authenticated"
	case ReasonNotAdmin:
		return "not_admin"
	default:
		return "none"
	}
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Evaluate applies policy to state. It has no side effects.
func Evaluate(policy Policy, state State) Decision {
	switch policy {
	case Public:
		return allow
	case RequiresSession:
		if state == Unauthenticated {
			return deny(ReasonNotAuthenticated)
		}
		return allow
	case RequiresAdmin:
		if state == AuthenticatedAdmin {
			return allow
		}
		return deny(ReasonNotAdmin)
	default:
		return deny(ReasonNotAuthenticated)
	}
}

// Check is Evaluate on a loaded session.
func Check(policy Policy, s session.Session) Decision {
	return Evaluate(policy, StateOf(s))
}
