package ledger_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/webcraft/account-gateway/ledger"
)

func TestNewRecord(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	record := ledger.NewRecord("token-abc", ledger.ProviderIdentity, now)

	require.Equal(t, "token-abc", record.Token)
	require.Equal(t, ledger.ProviderIdentity, record.Provider)
	require.Equal(t, now, record.IssuedAt)
	require.Equal(t, now.Add(ledger.TokenTTL), record.ExpiresAt)
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := ledger.NewRecord("token-abc", ledger.ProviderIdentity, now)

	t.Run("absent record counts as expired", func(t *testing.T) {
		require.True(t, ledger.Expired(nil, now))
	})

	t.Run("fresh record is not expired", func(t *testing.T) {
		require.False(t, ledger.Expired(&record, now))
	})

	t.Run("just before the boundary", func(t *testing.T) {
		require.False(t, ledger.Expired(&record, record.ExpiresAt.Add(-time.Second)))
	})

	t.Run("exactly at the boundary", func(t *testing.T) {
		require.True(t, ledger.Expired(&record, record.ExpiresAt))
	})

	t.Run("past the boundary", func(t *testing.T) {
		require.True(t, ledger.Expired(&record, record.ExpiresAt.Add(time.Second)))
	})
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := ledger.NewRecord("token-abc", ledger.ProviderIdentity, now)
	threshold := record.ExpiresAt.Add(-ledger.RefreshThreshold)

	t.Run("absent record has nothing to refresh", func(t *testing.T) {
		require.False(t, ledger.NeedsRefresh(nil, now))
	})

	t.Run("fresh record does not need refresh", func(t *testing.T) {
		require.False(t, ledger.NeedsRefresh(&record, now))
	})

	t.Run("just before the threshold", func(t *testing.T) {
		require.False(t, ledger.NeedsRefresh(&record, threshold.Add(-time.Second)))
	})

	t.Run("exactly at the threshold", func(t *testing.T) {
		require.True(t, ledger.NeedsRefresh(&record, threshold))
	})

	t.Run("inside the refresh window", func(t *testing.T) {
		require.True(t, ledger.NeedsRefresh(&record, threshold.Add(time.Hour)))
	})
}

func TestMinutesUntilExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := ledger.NewRecord("token-abc", ledger.ProviderIdentity, now)

	require.Equal(t, 0, ledger.MinutesUntilExpiry(nil, now))
	require.Equal(t, int(ledger.TokenTTL/time.Minute), ledger.MinutesUntilExpiry(&record, now))
	require.Equal(t, 90, ledger.MinutesUntilExpiry(&record, record.ExpiresAt.Add(-90*time.Minute)))
	require.Equal(t, 0, ledger.MinutesUntilExpiry(&record, record.ExpiresAt.Add(time.Hour)))
}

func TestSetRecordReplacesAndBumpsLastRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	led := &ledger.StoredLedger{}

	led.SetRecord(ledger.NewRecord("first", ledger.ProviderIdentity, now), now)
	require.Equal(t, "first", led.Record(ledger.ProviderIdentity).Token)
	require.Equal(t, now, led.LastRefresh)

	later := now.Add(time.Hour)
	led.SetRecord(ledger.NewRecord("second", ledger.ProviderIdentity, later), later)
	require.Equal(t, "second", led.Record(ledger.ProviderIdentity).Token)
	require.Equal(t, later, led.LastRefresh)
	require.Nil(t, led.Record(ledger.ProviderGitHub))

	led.SetRecord(ledger.NewRecord("gh-token", ledger.ProviderGitHub, later), later)
	require.Equal(t, "gh-token", led.Record(ledger.ProviderGitHub).Token)
	require.Equal(t, "second", led.Record(ledger.ProviderIdentity).Token)
}

func TestTokenExpiry(t *testing.T) {
	t.Run("extracts the exp claim without verification", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		claims := jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
		require.NoError(t, err)

		got, ok := ledger.TokenExpiry(token)
		require.True(t, ok)
		require.Equal(t, exp.Unix(), got.Unix())
	})

	t.Run("opaque token yields no expiry", func(t *testing.T) {
		_, ok := ledger.TokenExpiry("gho_notajwt")
		require.False(t, ok)
	})

	t.Run("jwt without exp claim", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("any-key"))
		require.NoError(t, err)

		_, ok := ledger.TokenExpiry(token)
		require.False(t, ok)
	})
}
