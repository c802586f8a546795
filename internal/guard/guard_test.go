package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adoptify-web/internal/session"
)

func TestEvaluateTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state  State
		policy Policy
		want   Decision
	}{
		{Unauthenticated, Public, Decision{Allowed: true}},
		{Unauthenticated, RequiresSession, Decision{Reason: ReasonNotAuthenticated}},
		{Unauthenticated, RequiresAdmin, Decision{Reason: ReasonNotAdmin}},
		{AuthenticatedUser, Public, Decision{Allowed: true}},
		{AuthenticatedUser, RequiresSession, Decision{Allowed: true}},
		{AuthenticatedUser, RequiresAdmin, Decision{Reason: ReasonNotAdmin}},
		{AuthenticatedAdmin, Public, Decision{Allowed: true}},
		{AuthenticatedAdmin, RequiresSession, Decision{Allowed: true}},
		{AuthenticatedAdmin, RequiresAdmin, Decision{Allowed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String()+"/"+tt.policy.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.policy, tt.state))
		})
	}
}

func TestStateOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sess session.Session
		want State
	}{
		{"empty", session.Session{}, Unauthenticated},
		{"refresh token only", session.Session{RefreshToken: "r", Role: session.RoleAdmin}, Unauthenticated},
		{"access without role", session.Session{AccessToken: "a"}, AuthenticatedUser},
		{"user", session.Session{AccessToken: "a", Role: session.RoleUser}, AuthenticatedUser},
		{"admin", session.Session{AccessToken: "a", Role: session.RoleAdmin}, AuthenticatedAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.sess))
		})
	}
}

func TestCheckDoesNotTouchStore(t *testing.T) {
	t.Parallel()

	sess := session.Session{AccessToken: "a", RefreshToken: "r", Role: session.RoleUser, Username: "bob"}
	before := sess

	decision := Check(RequiresAdmin, sess)

	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNotAdmin, decision.Reason)
	assert.Equal(t, before, sess)
}

func TestCheckSessionShapes(t *testing.T) {
	t.Parallel()

	sessions := map[string]session.Session{
		"empty":        {},
		"refresh only": {RefreshToken: "r"},
		"user":         {AccessToken: "a", RefreshToken: "r", Role: session.RoleUser, Username: "bob"},
		"admin":        {AccessToken: "a", RefreshToken: "r", Role: session.RoleAdmin, Username: "alice"},
	}

	tests := []struct {
		sess   string
		policy Policy
		want   bool
		reason Reason
	}{
		{"empty", Public, true, ReasonNone},
		{"empty", RequiresSession, false, ReasonNotAuthenticated},
		{"empty", RequiresAdmin, false, ReasonNotAdmin},
		{"refresh only", Public, true, ReasonNone},
		{"refresh only", RequiresSession, false, ReasonNotAuthenticated},
		{"refresh only", RequiresAdmin, false, ReasonNotAdmin},
		{"user", Public, true, ReasonNone},
		{"user", RequiresSession, true, ReasonNone},
		{"user", RequiresAdmin, false, ReasonNotAdmin},
		{"admin", Public, true, ReasonNone},
		{"admin", RequiresSession, true, ReasonNone},
		{"admin", RequiresAdmin, true, ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.sess+"/"+tt.policy.String(), func(t *testing.T) {
			got := Check(tt.policy, sessions[tt.sess])
			assert.Equal(t, tt.want, got.Allowed)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}
