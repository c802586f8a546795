// Package session holds the client session (token pair, role, username) and
// the stores it is persisted in.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Key names a persisted session field. These are the only keys a store
// accepts.
type Key string

const (
	KeyAccess   Key = "access"
	KeyRefresh  Key = "refresh"
	KeyRole     Key = "role"
	KeyUsername Key = "username"

	// legacyTokenKey was written by older login pages. It is never read.
	legacyTokenKey = "token"
)

var Keys = []Key{KeyAccess, KeyRefresh, KeyRole, KeyUsername}

var ErrUnknownKey = errors.New("unknown session key")

func (k Key) valid() bool {
	switch k {
	case KeyAccess, KeyRefresh, KeyRole, KeyUsername:
		return true
	default:
		return false
	}
}

// Role is the coarse authorization label resolved from the profile endpoint.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

// ParseRole maps a wire value to a Role. The empty string is Anonymous.
func ParseRole(raw string) (Role, error) {
	switch raw {
	case "":
		return RoleAnonymous, nil
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleAnonymous, fmt.Errorf("unknown role %q", raw)
	}
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// stored is the value persisted under KeyRole.
func (r Role) stored() string {
	switch r {
	case RoleUser, RoleAdmin:
		return r.String()
	default:
		return ""
	}
}

// Session is a snapshot of the four persisted keys. Empty strings mean absent.
type Session struct {
	AccessToken  string
	RefreshToken string
	Role         Role
	Username     string
}

// Authenticated reports whether an access token is present. Validity is never
// checked locally; the next API call finds out.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

func (s Session) IsZero() bool {
	return s == Session{}
}

// Values returns the non-empty keys of s.
func (s Session) Values() map[Key]string {
	out := make(map[Key]string, len(Keys))
	put := func(k Key, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put(KeyAccess, s.AccessToken)
	put(KeyRefresh, s.RefreshToken)
	put(KeyRole, s.Role.stored())
	put(KeyUsername, s.Username)
	return out
}

// FromValues rebuilds a Session from persisted values. An unrecognised role
// degrades to Anonymous.
func FromValues(values map[Key]string) Session {
	role, err := ParseRole(values[KeyRole])
	if err != nil {
		role = RoleAnonymous
	}
	return Session{
		AccessToken:  values[KeyAccess],
		RefreshToken: values[KeyRefresh],
		Role:         role,
		Username:     values[KeyUsername],
	}
}

// Store is the persisted key-value store backing one client session.
//
// Save replaces all four keys and Clear removes all four; both are atomic, so
// a concurrent Load never observes a half-written session. Setting a key to
// the empty string removes it.
//
// SetAccessIf and ClearIf are the writes a token refresh may make. They apply
// only while the stored refresh token still equals refresh, so a refresh that
// outlives a logout or a new login cannot touch the session that replaced it.
// SetAccessIf never writes when refresh is empty. Both report whether they
// changed anything.
type Store interface {
	Get(ctx context.Context, key Key) (string, error)
	Set(ctx context.Context, key Key, value string) error
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
	SetAccessIf(ctx context.Context, refresh string, access string) (bool, error)
	ClearIf(ctx context.Context, refresh string) (bool, error)
}

// Registry hands out the Store bound to one browser session id.
type Registry interface {
	Store(id string) Store
}

// Sweeper drops sessions that have been idle for idleFor. A session is idle
// while nothing loads or writes it; Get alone does not count.
type Sweeper interface {
	Sweep(ctx context.Context, idleFor time.Duration) (int64, error)
}
