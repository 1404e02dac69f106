package server

import (
	"net/http"

	"github.com/webcraft/account-gateway/identity"
	apperrors "github.com/webcraft/account-gateway/internal/errors"
	"github.com/webcraft/account-gateway/internal/utils"
	"github.com/webcraft/account-gateway/profiles"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type createdUser struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type createUserResponse struct {
	Message          string      `json:"message"`
	User             createdUser `json:"user"`
	EmailSent        bool        `json:"emailSent"`
	VerificationLink string      `json:"verificationLink,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// CreateUserHandler provisions a new password account plus its profile
// document, then attempts to send the verification email. A mail failure
// does not fail the request; the verification link is returned instead.
func (s *Server) CreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			s.adminError(w, "createUser", "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Email == "" || req.Password == "" || req.Username == "" {
			s.adminError(w, "createUser", "Email, password, and username are required", http.StatusBadRequest)
			return
		}
		if !emailRegex.MatchString(req.Email) {
			s.adminError(w, "createUser", "Invalid email format", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 6 {
			s.adminError(w, "createUser", "Password must be at least 6 characters long", http.StatusBadRequest)
			return
		}
		role := req.Role
		if role == "" {
			role = string(profiles.RoleUser)
		}

		ctx := r.Context()
		user, err := s.deps.Provider.CreateUser(ctx, identity.CreateUserParams{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.Username,
		})
		if err != nil {
			statusCode, message := providerStatus(err)
			s.logger.Error().Err(err).Str("email", req.Email).Msg("create user failed")
			s.adminError(w, "createUser", message, statusCode)
			return
		}

		profile := &profiles.Profile{
			UID:      user.UID,
			Username: req.Username,
			Email:    req.Email,
			Provider: string(identity.MethodPassword),
			Role:     profiles.RoleType(role),
		}
		if err := s.deps.Profiles.Set(ctx, profile); err != nil {
			s.logger.Error().Err(err).Str("uid", user.UID).Msg("profile write failed")
			s.adminError(w, "createUser", "Failed to store the user profile", http.StatusInternalServerError)
			return
		}

		response := createUserResponse{
			Message: "User created successfully",
			User: createdUser{
				UID:      user.UID,
				Email:    user.Email,
				Username: req.Username,
				Role:     role,
			},
		}

		link, err := s.deps.Provider.GenerateEmailVerificationLink(ctx, req.Email)
		if err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("verification link generation failed")
			response.Error = "Failed to generate the verification link"
			s.deps.Metrics.RecordAdminOp("createUser", http.StatusCreated)
			writeJSON(w, http.StatusCreated, response)
			return
		}

		if err := s.deps.Mailer.SendVerificationEmail(ctx, req.Email, req.Username, link); err != nil {
			s.logger.Error().Err(err).Str("email", req.Email).Msg("verification email failed")
			s.deps.Metrics.RecordEmailSent("verification", false)
			response.VerificationLink = link
			response.Error = "Verification email could not be sent"
		} else {
			s.deps.Metrics.RecordEmailSent("verification", true)
			response.EmailSent = true
		}

		s.deps.Metrics.RecordAdminOp("createUser", http.StatusCreated)
		writeJSON(w, http.StatusCreated, response)
	}
}

type deleteUserRequest struct {
	UID string `json:"uid"`
}

type deleteDetails struct {
	AuthDeleted      bool `json:"authDeleted"`
	FirestoreDeleted bool `json:"firestoreDeleted"`
}

// DeleteUserHandler removes an account from the identity provider and its
// profile document. The two deletions are independent; the request succeeds
// when at least one side held a record.
func (s *Server) DeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteUserRequest
		if err := decodeJSON(r, &req); err != nil || req.UID == "" {
			s.adminError(w, "deleteUser", "UID is required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		details := deleteDetails{}

		switch err := s.deps.Provider.DeleteUser(ctx, req.UID); {
		case err == nil:
			details.AuthDeleted = true
		case apperrors.Is(err, apperrors.ErrUserNotFound):
			// Nothing on the provider side, the document may still exist.
		default:
			s.logger.Error().Err(err).Str("uid", req.UID).Msg("auth deletion failed")
			s.adminError(w, "deleteUser", "Failed to delete the user account", http.StatusInternalServerError)
			return
		}

		switch err := s.deps.Profiles.Delete(ctx, req.UID); {
		case err == nil:
			details.FirestoreDeleted = true
		case apperrors.Is(err, apperrors.ErrProfileNotFound):
		default:
			s.logger.Error().Err(err).Str("uid", req.UID).Msg("profile deletion failed")
		}

		if !details.AuthDeleted && !details.FirestoreDeleted {
			s.adminError(w, "deleteUser", "User not found", http.StatusNotFound)
			return
		}

		s.deps.Metrics.RecordAdminOp("deleteUser", http.StatusOK)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "User deleted successfully",
			"details": details,
		})
	}
}

type toggleUserRequest struct {
	UID      string `json:"uid"`
	Disabled *bool  `json:"disabled"`
}

// ToggleUserHandler enables or disables sign-in for an account. The profile
// mirror is updated only when the document exists.
func (s *Server) ToggleUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleUserRequest
		if err := decodeJSON(r, &req); err != nil {
			s.adminError(w, "toggleUser", "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.UID == "" {
			s.adminError(w, "toggleUser", "UID is required", http.StatusBadRequest)
			return
		}
		if req.Disabled == nil {
			s.adminError(w, "toggleUser", "Disabled status must be a boolean", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		user, err := s.deps.Provider.GetUser(ctx, req.UID)
		if err != nil {
			statusCode, message := providerStatus(err)
			s.adminError(w, "toggleUser", message, statusCode)
			return
		}

		if _, err := s.deps.Provider.UpdateUser(ctx, req.UID, identity.UpdateUserParams{Disabled: req.Disabled}); err != nil {
			s.logger.Error().Err(err).Str("uid", req.UID).Msg("toggle update failed")
			s.adminError(w, "toggleUser", "Failed to update the user account", http.StatusInternalServerError)
			return
		}

		s.mirrorProfile(r, req.UID, profiles.ProfileUpdate{Disabled: req.Disabled})

		message := "User enabled successfully"
		if *req.Disabled {
			message = "User disabled successfully"
		}
		s.deps.Metrics.RecordAdminOp("toggleUser", http.StatusOK)
		writeJSON(w, http.StatusOK, map[string]string{
			"message": message,
			"email":   user.Email,
		})
	}
}

type verifyUserEmailRequest struct {
	UID string `json:"uid"`
}

// VerifyUserEmailHandler marks an account's email address as verified on
// behalf of the user.
func (s *Server) VerifyUserEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyUserEmailRequest
		if err := decodeJSON(r, &req); err != nil || req.UID == "" {
			s.adminError(w, "verifyUserEmail", "UID is required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		user, err := s.deps.Provider.GetUser(ctx, req.UID)
		if err != nil {
			statusCode, message := providerStatus(err)
			s.adminError(w, "verifyUserEmail", message, statusCode)
			return
		}

		if _, err := s.deps.Provider.UpdateUser(ctx, req.UID, identity.UpdateUserParams{EmailVerified: utils.Ptr(true)}); err != nil {
			s.logger.Error().Err(err).Str("uid", req.UID).Msg("verify update failed")
			s.adminError(w, "verifyUserEmail", "Failed to update the user account", http.StatusInternalServerError)
			return
		}

		s.mirrorProfile(r, req.UID, profiles.ProfileUpdate{EmailVerified: utils.Ptr(true)})

		s.deps.Metrics.RecordAdminOp("verifyUserEmail", http.StatusOK)
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Email verified successfully",
			"email":   user.Email,
		})
	}
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordHandler generates a password reset link for an account and
// hands it back to the caller.
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if err := decodeJSON(r, &req); err != nil || req.Email == "" {
			s.adminError(w, "resetPassword", "Email is required", http.StatusBadRequest)
			return
		}

		link, err := s.deps.Provider.GeneratePasswordResetLink(r.Context(), req.Email)
		if err != nil {
			statusCode, message := providerStatus(err)
			s.adminError(w, "resetPassword", message, statusCode)
			return
		}

		s.deps.Metrics.RecordAdminOp("resetPassword", http.StatusOK)
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Password reset link generated successfully",
			"link":    link,
		})
	}
}

type listedUser struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	Provider      string `json:"provider"`
	Disabled      bool   `json:"disabled"`
	EmailVerified bool   `json:"emailVerified"`
}

// ListUsersHandler returns every provider account merged with the profile
// fields the document store holds for it.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		users, err := s.deps.Provider.ListUsers(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("list users failed")
			s.adminError(w, "listUsers", "Failed to list users", http.StatusInternalServerError)
			return
		}

		docs, err := s.deps.Profiles.List(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("profile listing failed")
			docs = nil // Provider records still get returned.
		}
		byUID := make(map[string]*profiles.Profile, len(docs))
		for _, doc := range docs {
			byUID[doc.UID] = doc
		}

		listed := make([]listedUser, 0, len(users))
		for _, user := range users {
			entry := listedUser{
				UID:           user.UID,
				Email:         user.Email,
				Username:      user.DisplayName,
				Role:          string(profiles.RoleUser),
				Provider:      string(user.Method),
				Disabled:      user.Disabled,
				EmailVerified: user.EmailVerified,
			}
			if doc, ok := byUID[user.UID]; ok {
				entry.Username = doc.Username
				entry.Role = string(doc.Role)
			}
			listed = append(listed, entry)
		}

		s.deps.Metrics.RecordAdminOp("listUsers", http.StatusOK)
		writeJSON(w, http.StatusOK, map[string]any{"users": listed})
	}
}

// mirrorProfile applies an update to the profile document if one exists. A
// missing document is not an error, the provider record is authoritative.
func (s *Server) mirrorProfile(r *http.Request, uid string, update profiles.ProfileUpdate) {
	if _, err := s.deps.Profiles.Get(r.Context(), uid); err != nil {
		if !apperrors.Is(err, apperrors.ErrProfileNotFound) {
			s.logger.Error().Err(err).Str("uid", uid).Msg("profile lookup failed")
		}
		return
	}
	if err := s.deps.Profiles.Update(r.Context(), uid, update); err != nil {
		s.logger.Error().Err(err).Str("uid", uid).Msg("profile mirror update failed")
	}
}

func (s *Server) adminError(w http.ResponseWriter, op, message string, statusCode int) {
	s.deps.Metrics.RecordAdminOp(op, statusCode)
	writeJSONError(w, message, statusCode)
}
