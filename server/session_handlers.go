package server

import (
	"net/http"
	"time"

	"github.com/webcraft/account-gateway/ledger"
)

type tokenStatus struct {
	IsValid        bool   `json:"isValid"`
	NeedsRefresh   bool   `json:"needsRefresh"`
	ExpiresIn      int    `json:"expiresIn"` // minutes
	ExpirationDate string `json:"expirationDate"`
	TokenExpiry    string `json:"tokenExpiry,omitempty"` // provider-side exp claim
}

// SessionHandler reports the caller's session state and both token ledger
// entries. Polling this endpoint also wakes the lifecycle monitor so a
// sweep never lags a dormant process.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		monitor := s.deps.Controller.Monitor()
		monitor.Wake()

		snapshot := s.deps.Controller.Snapshot()

		stored, err := s.deps.Ledger.Read()
		if err != nil {
			s.logger.Error().Err(err).Msg("ledger read failed")
		}

		now := time.Now()
		response := map[string]any{
			"loading":      snapshot.Loading,
			"tokenExpired": snapshot.TokenExpired,
			"tokens": map[string]tokenStatus{
				"identity": statusFor(stored, ledger.ProviderIdentity, now),
				"github":   statusFor(stored, ledger.ProviderGitHub, now),
			},
		}
		if snapshot.User != nil {
			response["user"] = snapshot.User
		}
		if snapshot.Profile != nil {
			response["profile"] = snapshot.Profile
		}
		if stored != nil && !stored.LastRefresh.IsZero() {
			response["lastRefresh"] = stored.LastRefresh.Format(time.RFC3339)
		}
		if monitor.ExpiredNotice() {
			response["previousSessionExpired"] = true
		}

		writeJSON(w, http.StatusOK, response)
	}
}

// SessionRefreshHandler forces an immediate refresh of the identity token.
func (s *Server) SessionRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.deps.Controller.Monitor().ForceRefresh(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"success": result.Success,
			"errors":  result.Errors,
		})
	}
}

func statusFor(stored *ledger.StoredLedger, provider ledger.Provider, now time.Time) tokenStatus {
	var record *ledger.TokenRecord
	if stored != nil {
		record = stored.Record(provider)
	}
	if record == nil {
		return tokenStatus{ExpirationDate: "No token"}
	}

	status := tokenStatus{
		IsValid:        !ledger.Expired(record, now),
		NeedsRefresh:   ledger.NeedsRefresh(record, now),
		ExpiresIn:      ledger.MinutesUntilExpiry(record, now),
		ExpirationDate: record.ExpiresAt.Format(time.RFC1123),
	}
	if expiry, ok := ledger.TokenExpiry(record.Token); ok {
		status.TokenExpiry = expiry.Format(time.RFC3339)
	}
	return status
}
