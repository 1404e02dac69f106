package session_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/profiles"
	"github.com/webcraft/account-gateway/session"
)

func TestEvaluate(t *testing.T) {
	verifiedUser := &identity.UserRecord{
		UID:           "user-1",
		Email:         "john.doe@example.com",
		Method:        identity.MethodPassword,
		EmailVerified: true,
	}
	unverifiedUser := &identity.UserRecord{
		UID:    "user-2",
		Email:  "jane.doe@example.com",
		Method: identity.MethodPassword,
	}
	githubUser := &identity.UserRecord{
		UID:    "user-3",
		Email:  "octocat@example.com",
		Method: identity.MethodGitHub,
	}

	t.Run("loading state defers the decision", func(t *testing.T) {
		decision := session.Evaluate(session.State{Loading: true}, true)
		require.False(t, decision.Allowed)
		require.Empty(t, decision.RedirectTo)
	})

	t.Run("no user redirects to login", func(t *testing.T) {
		decision := session.Evaluate(session.State{}, false)
		require.False(t, decision.Allowed)
		require.Equal(t, session.RedirectLogin, decision.RedirectTo)
	})

	t.Run("unverified user redirects to verify-email when required", func(t *testing.T) {
		decision := session.Evaluate(session.State{User: unverifiedUser}, true)
		require.False(t, decision.Allowed)
		require.Equal(t, session.RedirectVerifyEmail, decision.RedirectTo)
	})

	t.Run("unverified user passes when verification not required", func(t *testing.T) {
		decision := session.Evaluate(session.State{User: unverifiedUser}, false)
		require.True(t, decision.Allowed)
	})

	t.Run("verified user passes", func(t *testing.T) {
		decision := session.Evaluate(session.State{User: verifiedUser}, true)
		require.True(t, decision.Allowed)
	})

	t.Run("oauth user counts as verified", func(t *testing.T) {
		decision := session.Evaluate(session.State{User: githubUser}, true)
		require.True(t, decision.Allowed)
	})

	t.Run("profile verification flag suffices", func(t *testing.T) {
		state := session.State{
			User:    unverifiedUser,
			Profile: &profiles.Profile{UID: "user-2", EmailVerified: true},
		}
		decision := session.Evaluate(state, true)
		require.True(t, decision.Allowed)
	})
}

func TestCanAccess(t *testing.T) {
	user := &identity.UserRecord{UID: "user-1", Method: identity.MethodGitHub}

	require.True(t, session.CanAccess(session.State{User: user}, true))
	require.False(t, session.CanAccess(session.State{}, false))
	require.False(t, session.CanAccess(session.State{Loading: true}, false))
}
