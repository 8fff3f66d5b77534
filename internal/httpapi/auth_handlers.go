package httpapi

import (
	"errors"
	"net/http"

	"dokuai.org/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Name, email, and password are required", err)
		return
	}

	user, err := a.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, false, "Name, email, and password are required")
		case errors.Is(err, auth.ErrWeakPassword):
			writeMessage(w, http.StatusBadRequest, false, "Password must be at least 8 characters long")
		case errors.Is(err, auth.ErrEmailTaken):
			writeMessage(w, http.StatusBadRequest, false, "User with this email already exists")
		default:
			a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Registration successful. Please check your email to verify your account.",
		"user": envelope{
			"id":          user.ID,
			"name":        user.Name,
			"email":       user.Email,
			"is_verified": false,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Email and password are required", err)
		return
	}

	token, user, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, false, "Email and password are required")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeMessage(w, http.StatusBadRequest, false, "Invalid email or password")
		case errors.Is(err, auth.ErrNotVerified):
			// No session token: the client gets a minimal projection so it can
			// prompt for re-verification. A fresh verification email is
			// already on its way.
			writeJSON(w, http.StatusForbidden, envelope{
				"success": false,
				"message": "Please verify your email before logging in",
				"user": envelope{
					"id":          user.ID,
					"email":       user.Email,
					"name":        user.Name,
					"is_verified": false,
				},
			})
		default:
			a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user": envelope{
			"id":          user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"role":        user.Role,
			"is_verified": user.IsVerified,
		},
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Email is required", err)
		return
	}

	if err := a.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			writeMessage(w, http.StatusBadRequest, false, "Email is required")
			return
		}
		a.fail(w, r, http.StatusInternalServerError, "Failed to send reset email. Please try again later.", err)
		return
	}

	// Identical acknowledgement whether or not the account exists.
	writeMessage(w, http.StatusOK, true, "If this email exists in our system, you'll receive a reset link")
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Token and new password are required", err)
		return
	}

	if err := a.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, false, "Token and new password are required")
		case errors.Is(err, auth.ErrWeakPassword):
			writeMessage(w, http.StatusBadRequest, false, "Password must be at least 8 characters long")
		case errors.Is(err, auth.ErrTokenExpired):
			writeMessage(w, http.StatusBadRequest, false, "Token has expired")
		case errors.Is(err, auth.ErrInvalidToken):
			writeMessage(w, http.StatusBadRequest, false, "Invalid or expired token")
		default:
			a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"message":     "Password reset successful",
		"shouldClose": true,
	})
}

func (a *API) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeMessage(w, http.StatusBadRequest, false, "Token is required")
		return
	}

	if err := a.svc.VerifyResetToken(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			writeMessage(w, http.StatusBadRequest, false, "Token has expired")
		case errors.Is(err, auth.ErrInvalidToken):
			writeMessage(w, http.StatusBadRequest, false, "Invalid or expired token")
		default:
			a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, true, "Token is valid")
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// handleVerifyEmail accepts the token in a POST body or a GET query so the
// emailed link works directly.
func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var token string
	if r.Method == http.MethodPost {
		var req verifyEmailRequest
		if err := decodeJSON(r, &req); err != nil {
			a.fail(w, r, http.StatusBadRequest, "Token is required", err)
			return
		}
		token = req.Token
	} else {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeMessage(w, http.StatusBadRequest, false, "Token is required")
		return
	}

	if err := a.svc.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeMessage(w, http.StatusBadRequest, false, "Invalid or expired verification token")
			return
		}
		a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	writeMessage(w, http.StatusOK, true, "Email verified successfully")
}

// handleVerifyToken runs behind Authenticate; by the time it executes, the
// subject has been re-resolved against the store.
func (a *API) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Access token required")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Token is valid",
		"user": envelope{
			"id":          id.ID,
			"email":       id.Email,
			"role":        id.Role,
			"is_verified": id.IsVerified,
		},
		// Role at the root too, for clients that only need the gate.
		"role": id.Role,
	})
}

// handlePing is the cheap liveness signal: token decode plus one UPDATE,
// no store resolution of the subject.
func (a *API) handlePing(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, false, "Token is required")
		return
	}

	if err := a.svc.Ping(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeMessage(w, http.StatusForbidden, false, "Invalid or expired token")
			return
		}
		a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	writeMessage(w, http.StatusOK, true, "Activity updated")
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Name is required", err)
		return
	}

	user, err := a.svc.UpdateProfile(r.Context(), id.ID, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			writeMessage(w, http.StatusBadRequest, false, "Name is required")
			return
		}
		a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Profile updated",
		"user":    user.Project(),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Authentication required")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, http.StatusBadRequest, "Current and new password are required", err)
		return
	}

	if err := a.svc.ChangePassword(r.Context(), id.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, false, "Current and new password are required")
		case errors.Is(err, auth.ErrWeakPassword):
			writeMessage(w, http.StatusBadRequest, false, "Password must be at least 8 characters long")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeMessage(w, http.StatusBadRequest, false, "Current password is incorrect")
		default:
			a.fail(w, r, http.StatusInternalServerError, "Internal Server Error", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, true, "Password changed successfully")
}
