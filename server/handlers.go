package server

import (
	"encoding/json"
	"net/http"
	"regexp"

	apperrors "github.com/webcraft/account-gateway/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// providerStatus maps an identity provider error to the HTTP status and
// message the client sees.
func providerStatus(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrEmailExists):
		return http.StatusConflict, "This email is already registered"
	case apperrors.Is(err, apperrors.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case apperrors.Is(err, apperrors.ErrWeakPassword):
		return http.StatusBadRequest, "Password is too weak"
	case apperrors.Is(err, apperrors.ErrUserNotFound):
		return http.StatusNotFound, "User not found in the identity provider"
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case apperrors.Is(err, apperrors.ErrUserDisabled):
		return http.StatusForbidden, "This account has been disabled"
	case apperrors.Is(err, apperrors.ErrInvalidToken), apperrors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, "Invalid or expired token"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
