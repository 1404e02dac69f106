// Package ledger keeps the locally persisted record of session tokens issued
// by each sign-in provider, together with their expiration bookkeeping.
package ledger

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider tags a token record with the provider that issued it.
type Provider string

const (
	ProviderIdentity Provider = "identity"
	ProviderGitHub   Provider = "github"
)

const (
	// TokenTTL is how long a recorded session stays valid locally.
	TokenTTL = 7 * 24 * time.Hour
	// RefreshThreshold is how long before expiry a proactive refresh kicks in.
	RefreshThreshold = 24 * time.Hour
)

// TokenRecord is one issued session token. Records are replaced on refresh,
// never mutated in place.
type TokenRecord struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Provider  Provider  `json:"provider"`
}

// StoredLedger holds at most one record per provider plus the time of the
// last refresh. Cleared as a whole on sign-out or detected expiration.
type StoredLedger struct {
	Identity    *TokenRecord `json:"identity,omitempty"`
	GitHub      *TokenRecord `json:"github,omitempty"`
	LastRefresh time.Time    `json:"last_refresh"`
}

// Record returns the entry for the given provider.
func (l *StoredLedger) Record(provider Provider) *TokenRecord {
	if l == nil {
		return nil
	}
	switch provider {
	case ProviderIdentity:
		return l.Identity
	case ProviderGitHub:
		return l.GitHub
	}
	return nil
}

// SetRecord replaces the entry for the record's provider and bumps
// LastRefresh.
func (l *StoredLedger) SetRecord(record TokenRecord, now time.Time) {
	switch record.Provider {
	case ProviderIdentity:
		l.Identity = &record
	case ProviderGitHub:
		l.GitHub = &record
	}
	l.LastRefresh = now
}

// NewRecord creates a token record expiring a fixed TTL after issuance.
func NewRecord(token string, provider Provider, now time.Time) TokenRecord {
	return TokenRecord{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(TokenTTL),
		Provider:  provider,
	}
}

// Expired reports whether the record's local session window has closed. An
// absent record counts as expired.
func Expired(record *TokenRecord, now time.Time) bool {
	if record == nil {
		return true
	}
	return !now.Before(record.ExpiresAt)
}

// NeedsRefresh reports whether the record is within the refresh threshold of
// expiring. Absent records have nothing to refresh.
func NeedsRefresh(record *TokenRecord, now time.Time) bool {
	if record == nil {
		return false
	}
	return !now.Before(record.ExpiresAt.Add(-RefreshThreshold))
}

// MinutesUntilExpiry returns the whole minutes left before the record
// expires, floored at zero.
func MinutesUntilExpiry(record *TokenRecord, now time.Time) int {
	if record == nil {
		return 0
	}
	left := record.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return int(left / time.Minute)
}

// TokenExpiry extracts the exp claim from a provider-issued JWT without
// verifying its signature. The claim reflects the token's own validity on
// the provider's side, which is shorter than the local session window.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
