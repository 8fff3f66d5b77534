package httpapi

import (
	"net/http"
	"testing"
	"time"

	"dokuai.org/internal/auth"
)

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "longenough",
	})
	body := wantMessage(t, rec, http.StatusCreated, true,
		"Registration successful. Please check your email to verify your account.")

	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user in response: %v", body)
	}
	if user["email"] != "ana@example.com" {
		t.Fatalf("unexpected user email: %v", user["email"])
	}
	if verified, _ := user["is_verified"].(bool); verified {
		t.Fatalf("new account must not be verified")
	}
}

func TestRegisterValidationMessages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "Name, email, and password are required")

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "short",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "Password must be at least 8 characters long")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "Ana@Example.com", "password": "longenough",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "User with this email already exists")
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "longenough",
	})
	body := wantMessage(t, rec, http.StatusOK, true, "Login successful")
	if token, _ := body["token"].(string); token == "" {
		t.Fatalf("expected session token in response")
	}
	user, _ := body["user"].(map[string]any)
	if user["role"] != auth.RoleUser {
		t.Fatalf("unexpected role: %v", user["role"])
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)

	for _, creds := range []map[string]string{
		{"email": "nobody@example.com", "password": "whatever1"},
		{"email": "ana@example.com", "password": "wrongpass"},
	} {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", creds)
		wantMessage(t, rec, http.StatusBadRequest, false, "Invalid email or password")
	}
}

func TestLoginUnverified(t *testing.T) {
	env := newTestEnv(t)
	hash, err := auth.HashPassword("longenough")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	env.store.add(&auth.User{Name: "Ana", Email: "ana@example.com", PasswordHash: hash})

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "longenough",
	})
	body := wantMessage(t, rec, http.StatusForbidden, false, "Please verify your email before logging in")
	if _, hasToken := body["token"]; hasToken {
		t.Fatalf("unverified login must not return a token")
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "ana@example.com" {
		t.Fatalf("expected minimal user payload, got %v", body["user"])
	}
}

func TestForgotPasswordUniformAck(t *testing.T) {
	env := newTestEnv(t)
	env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)

	const ack = "If this email exists in our system, you'll receive a reset link"
	for _, email := range []string{"ana@example.com", "nobody@example.com"} {
		rec := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": email})
		wantMessage(t, rec, http.StatusOK, true, ack)
	}

	rec := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{})
	wantMessage(t, rec, http.StatusBadRequest, false, "Email is required")
}

func TestResetPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.addVerifiedUser(t, "ana@example.com", "oldpassword", auth.RoleUser)
	token := "reset-token"
	future := time.Now().Add(30 * time.Minute)
	env.store.users[u.ID].ResetToken = &token
	env.store.users[u.ID].ResetTokenExpires = &future

	rec := env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": "no-such-token", "newPassword": "newpassword",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "Invalid or expired token")

	rec = env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": token, "newPassword": "newpassword",
	})
	body := wantMessage(t, rec, http.StatusOK, true, "Password reset successful")
	if shouldClose, _ := body["shouldClose"].(bool); !shouldClose {
		t.Fatalf("expected shouldClose flag")
	}

	// Token is consumed.
	rec = env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": token, "newPassword": "anothernewone",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "Invalid or expired token")
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.addVerifiedUser(t, "ana@example.com", "oldpassword", auth.RoleUser)
	token := "stale-token"
	past := time.Now().Add(-time.Minute)
	env.store.users[u.ID].ResetToken = &token
	env.store.users[u.ID].ResetTokenExpires = &past

	rec := env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": token, "newPassword": "newpassword",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "Token has expired")

	rec = env.do(t, http.MethodGet, "/api/auth/verify-reset-token?token="+token, "", nil)
	wantMessage(t, rec, http.StatusBadRequest, false, "Token has expired")
}

func TestVerifyResetTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)
	token := "reset-token"
	future := time.Now().Add(30 * time.Minute)
	env.store.users[u.ID].ResetToken = &token
	env.store.users[u.ID].ResetTokenExpires = &future

	rec := env.do(t, http.MethodGet, "/api/auth/verify-reset-token", "", nil)
	wantMessage(t, rec, http.StatusBadRequest, false, "Token is required")

	rec = env.do(t, http.MethodGet, "/api/auth/verify-reset-token?token="+token, "", nil)
	wantMessage(t, rec, http.StatusOK, true, "Token is valid")
}

func TestVerifyEmailEndpoint(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := auth.HashPassword("longenough")
	token := "verify-token"
	future := time.Now().Add(time.Hour)
	u := env.store.add(&auth.User{
		Name: "Ana", Email: "ana@example.com", PasswordHash: hash,
		VerificationToken: &token, VerificationTokenExpires: &future,
	})

	rec := env.do(t, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": token})
	wantMessage(t, rec, http.StatusOK, true, "Email verified successfully")
	if !env.store.users[u.ID].IsVerified {
		t.Fatalf("store must show verified")
	}

	// Single use: the same token fails on replay, via either method.
	rec = env.do(t, http.MethodGet, "/api/auth/verify-email?token="+token, "", nil)
	wantMessage(t, rec, http.StatusBadRequest, false, "Invalid or expired verification token")
}

func TestVerifyTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/auth/verify-token", token, nil)
	body := wantMessage(t, rec, http.StatusOK, true, "Token is valid")
	if body["role"] != auth.RoleAdmin {
		t.Fatalf("expected role at envelope root, got %v", body["role"])
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "ana@example.com" {
		t.Fatalf("unexpected user payload: %v", body["user"])
	}
}

func TestPingEndpoint(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)
	env.store.users[u.ID].LastActive = nil

	rec := env.do(t, http.MethodPost, "/api/auth/ping", "", nil)
	wantMessage(t, rec, http.StatusUnauthorized, false, "Token is required")

	rec = env.do(t, http.MethodPost, "/api/auth/ping", "garbage-token", nil)
	wantMessage(t, rec, http.StatusForbidden, false, "Invalid or expired token")

	rec = env.do(t, http.MethodPost, "/api/auth/ping", token, nil)
	wantMessage(t, rec, http.StatusOK, true, "Activity updated")
	if env.store.users[u.ID].LastActive == nil {
		t.Fatalf("ping must bump last_active")
	}
}

func TestUpdateProfileEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addVerifiedUser(t, "ana@example.com", "longenough", auth.RoleUser)

	rec := env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]string{"name": "  "})
	wantMessage(t, rec, http.StatusBadRequest, false, "Name is required")

	rec = env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]string{"name": "Ana Maria"})
	body := wantMessage(t, rec, http.StatusOK, true, "Profile updated")
	user, _ := body["user"].(map[string]any)
	if user["name"] != "Ana Maria" {
		t.Fatalf("unexpected name: %v", user["name"])
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addVerifiedUser(t, "ana@example.com", "oldpassword", auth.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "wrongcurrent", "newPassword": "newpassword",
	})
	wantMessage(t, rec, http.StatusBadRequest, false, "Current password is incorrect")

	rec = env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"currentPassword": "oldpassword", "newPassword": "newpassword",
	})
	wantMessage(t, rec, http.StatusOK, true, "Password changed successfully")
}

func TestProfileRequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := auth.HashPassword("longenough")
	u := env.store.add(&auth.User{Name: "Ana", Email: "ana@example.com", PasswordHash: hash})
	token, _, err := env.issuer.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]string{"name": "New Name"})
	wantMessage(t, rec, http.StatusForbidden, false, "Email verification required")
}

func TestRouteNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/auth/nope", "", nil)
	wantMessage(t, rec, http.StatusNotFound, false, "Route not found")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	body := wantMessage(t, rec, http.StatusOK, true, "Authentication service is running")
	if _, ok := body["timestamp"].(string); !ok {
		t.Fatalf("expected timestamp, got %v", body)
	}
}
