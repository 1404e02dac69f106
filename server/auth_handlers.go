package server

import (
	"context"
	"net/http"

	"github.com/webcraft/account-gateway/identity"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
	"github.com/webcraft/account-gateway/profiles"
	"github.com/webcraft/account-gateway/session"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// SignupHandler registers a new password account. The account starts
// unverified; a session is not established until the email is confirmed.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" || req.Username == "" {
			writeJSONError(w, "Email, password, and username are required", http.StatusBadRequest)
			return
		}
		if !emailRegex.MatchString(req.Email) {
			writeJSONError(w, "Invalid email format", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 6 {
			writeJSONError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		user, err := s.deps.Provider.CreateUser(ctx, identity.CreateUserParams{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.Username,
		})
		if err != nil {
			statusCode, message := providerStatus(err)
			s.logger.Error().Err(err).Str("email", req.Email).Msg("signup failed")
			writeJSONError(w, message, statusCode)
			return
		}

		profile := &profiles.Profile{
			UID:      user.UID,
			Username: req.Username,
			Email:    req.Email,
			Provider: string(identity.MethodPassword),
			Role:     profiles.RoleUser,
		}
		if err := s.deps.Profiles.Set(ctx, profile); err != nil {
			s.logger.Error().Err(err).Str("uid", user.UID).Msg("profile write failed")
		}

		response := map[string]any{
			"message": "Account created. Please verify your email before signing in",
			"user": map[string]string{
				"uid":      user.UID,
				"email":    user.Email,
				"username": req.Username,
			},
			"emailSent": false,
		}

		link, err := s.deps.Provider.GenerateEmailVerificationLink(ctx, req.Email)
		if err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("verification link generation failed")
			writeJSON(w, http.StatusCreated, response)
			return
		}
		if err := s.deps.Mailer.SendVerificationEmail(ctx, req.Email, req.Username, link); err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("verification email failed")
			s.deps.Metrics.RecordEmailSent("verification", false)
			response["verificationLink"] = link
		} else {
			s.deps.Metrics.RecordEmailSent("verification", true)
			response["emailSent"] = true
		}

		writeJSON(w, http.StatusCreated, response)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler signs in with email and password and runs session
// reconciliation. Unverified accounts are rejected and their tokens revoked.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" {
			writeJSONError(w, "Email and password are required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		cred, err := s.deps.Provider.SignInWithPassword(ctx, req.Email, req.Password)
		if err != nil {
			// Unknown emails get the same response as a wrong password.
			if apperrors.Is(err, apperrors.ErrUserNotFound) {
				writeJSONError(w, "Invalid email or password", http.StatusUnauthorized)
				return
			}
			statusCode, message := providerStatus(err)
			writeJSONError(w, message, statusCode)
			return
		}

		user, err := s.deps.Provider.GetUser(ctx, cred.UID)
		if err != nil {
			s.logger.Error().Err(err).Str("uid", cred.UID).Msg("account lookup failed after sign-in")
			writeJSONError(w, "Sign-in failed", http.StatusInternalServerError)
			return
		}

		if !s.deps.Controller.Publish(ctx, session.AuthEvent{User: user, Credential: cred}) {
			writeJSONError(w, "Another sign-in is already in progress", http.StatusConflict)
			return
		}

		snapshot := s.deps.Controller.Snapshot()
		if snapshot.User == nil {
			// Reconciliation forced a sign-out: the password account has not
			// verified its email yet.
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Please verify your email before signing in",
				"code":  "verification_required",
			})
			return
		}

		s.deps.Metrics.RecordLogin(string(identity.MethodPassword))
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         snapshot.User,
			"profile":      snapshot.Profile,
			"idToken":      cred.IDToken,
			"refreshToken": cred.RefreshToken,
			"expiresIn":    int(cred.ExpiresIn.Seconds()),
		})
	}
}

// LogoutHandler revokes the caller's refresh tokens and clears local session
// state.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		uid := UserIDFromContext(ctx)

		if err := s.deps.Provider.RevokeTokens(ctx, uid); err != nil {
			s.logger.Error().Err(err).Str("uid", uid).Msg("token revocation failed")
		}
		if err := s.deps.Ledger.Clear(); err != nil {
			s.logger.Error().Err(err).Msg("ledger clear failed")
		}
		s.deps.Controller.Publish(ctx, session.AuthEvent{})

		writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out successfully"})
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler emails a password reset link. The response does not
// reveal whether the address has an account.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest
		if err := decodeJSON(r, &req); err != nil || req.Email == "" {
			writeJSONError(w, "Email is required", http.StatusBadRequest)
			return
		}

		response := map[string]string{
			"message": "If an account exists for that address, a reset email has been sent",
		}

		ctx := r.Context()
		link, err := s.deps.Provider.GeneratePasswordResetLink(ctx, req.Email)
		if err != nil {
			if !apperrors.Is(err, apperrors.ErrUserNotFound) {
				s.logger.Error().Err(err).Str("email", req.Email).Msg("reset link generation failed")
			}
			writeJSON(w, http.StatusOK, response)
			return
		}

		username := req.Email
		if profile, err := s.profileByEmail(ctx, req.Email); err == nil {
			username = profile.Username
		}
		if err := s.deps.Mailer.SendPasswordResetEmail(ctx, req.Email, username, link); err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("reset email failed")
			s.deps.Metrics.RecordEmailSent("password_reset", false)
		} else {
			s.deps.Metrics.RecordEmailSent("password_reset", true)
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func (s *Server) profileByEmail(ctx context.Context, email string) (*profiles.Profile, error) {
	user, err := s.deps.Provider.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.deps.Profiles.Get(ctx, user.UID)
}
