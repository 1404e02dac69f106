package session

import "github.com/webcraft/account-gateway/identity"

// GuardDecision is the outcome of a route guard evaluation. A zero decision
// (not allowed, no redirect) means the session is still loading and the
// caller should wait.
type GuardDecision struct {
	Allowed    bool
	RedirectTo string
}

// Routes guards redirect to when access is denied.
const (
	RedirectLogin       = "/login"
	RedirectVerifyEmail = "/verify-email"
)

// Evaluate is a pure derived view over session state: it decides whether a
// screen may render and where to redirect otherwise.
func Evaluate(state State, requireVerified bool) GuardDecision {
	if state.Loading {
		return GuardDecision{}
	}
	if state.User == nil {
		return GuardDecision{RedirectTo: RedirectLogin}
	}
	if requireVerified && !Verified(state) {
		return GuardDecision{RedirectTo: RedirectVerifyEmail}
	}
	return GuardDecision{Allowed: true}
}

// CanAccess reports whether the current state may access a screen with the
// given verification requirement.
func CanAccess(state State, requireVerified bool) bool {
	return Evaluate(state, requireVerified).Allowed
}

// Verified reports whether the session's account counts as email-verified.
// OAuth-provider accounts are always treated as verified regardless of the
// live flag.
func Verified(state State) bool {
	if state.User == nil {
		return false
	}
	if state.User.Method != identity.MethodPassword {
		return true
	}
	if state.User.EmailVerified {
		return true
	}
	return state.Profile != nil && state.Profile.EmailVerified
}
