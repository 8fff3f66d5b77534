package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"dokuai.org/internal/auth"
)

var errTest = errors.New("store failure")

// stubStore is an in-memory auth.UserStore for handler tests.
type stubStore struct {
	users  map[int64]*auth.User
	nextID int64
	visits int
}

func newStubStore() *stubStore {
	return &stubStore{users: make(map[int64]*auth.User), nextID: 1}
}

func (s *stubStore) add(u *auth.User) *auth.User {
	cp := *u
	if cp.ID == 0 {
		cp.ID = s.nextID
		s.nextID++
	}
	if cp.Role == "" {
		cp.Role = auth.RoleUser
	}
	s.users[cp.ID] = &cp
	return &cp
}

func (s *stubStore) CreateUser(_ context.Context, u *auth.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return auth.ErrEmailTaken
		}
	}
	u.ID = s.nextID
	s.nextID++
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	cp := *u
	s.users[cp.ID] = &cp
	return nil
}

func (s *stubStore) UserByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) UserByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubStore) UserByResetToken(_ context.Context, token string) (*auth.User, error) {
	for _, u := range s.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubStore) SetVerificationToken(_ context.Context, userID int64, token string, expires time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.VerificationToken = &token
	u.VerificationTokenExpires = &expires
	return nil
}

func (s *stubStore) MarkVerified(_ context.Context, token string) error {
	for _, u := range s.users {
		if u.VerificationToken != nil && *u.VerificationToken == token &&
			u.VerificationTokenExpires != nil && u.VerificationTokenExpires.After(time.Now()) {
			u.IsVerified = true
			u.VerificationToken = nil
			u.VerificationTokenExpires = nil
			return nil
		}
	}
	return auth.ErrInvalidToken
}

func (s *stubStore) SetResetToken(_ context.Context, userID int64, token string, expires time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpires = &expires
	return nil
}

func (s *stubStore) ResetPassword(_ context.Context, userID int64, hash string) error {
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpires = nil
	return nil
}

func (s *stubStore) UpdateName(_ context.Context, userID int64, name string) (*auth.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	u.Name = name
	cp := *u
	return &cp, nil
}

func (s *stubStore) UpdatePassword(_ context.Context, userID int64, hash string) error {
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *stubStore) TouchLastActive(_ context.Context, userID int64) error {
	if u, ok := s.users[userID]; ok {
		now := time.Now()
		u.LastActive = &now
	}
	return nil
}

func (s *stubStore) RecordVisit(_ context.Context) error {
	s.visits++
	return nil
}

// stubReports serves canned reporting data.
type stubReports struct {
	stats  auth.Stats
	logs   []auth.ConversionLog
	active []auth.ActiveUser
	views  []auth.MonthlyViews
	err    error
}

func (s *stubReports) Stats(context.Context, time.Duration) (auth.Stats, error) {
	return s.stats, s.err
}

func (s *stubReports) RecentConversions(context.Context, int) ([]auth.ConversionLog, error) {
	return s.logs, s.err
}

func (s *stubReports) ActiveUsers(context.Context, time.Duration) ([]auth.ActiveUser, error) {
	return s.active, s.err
}

func (s *stubReports) MonthlySiteViews(context.Context, int) ([]auth.MonthlyViews, error) {
	return s.views, s.err
}

// nopMailer drops everything.
type nopMailer struct{}

func (nopMailer) SendVerification(context.Context, string, string) error { return nil }
func (nopMailer) SendPasswordReset(context.Context, string, string) error {
	return nil
}
func (nopMailer) SendPasswordChanged(context.Context, string) error { return nil }

type testEnv struct {
	api     *API
	store   *stubStore
	reports *stubReports
	issuer  *auth.Issuer
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store := newStubStore()
	reports := &stubReports{}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	svc := auth.NewService(store, issuer, nopMailer{},
		auth.WithFrontendURL("http://localhost:3000"))
	api := New(svc, reports, nil, "http://localhost:3000", opts...)
	return &testEnv{api: api, store: store, reports: reports, issuer: issuer}
}

func (e *testEnv) addVerifiedUser(t *testing.T, email, password, role string) (*auth.User, string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := e.store.add(&auth.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
	})
	token, _, err := e.issuer.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func wantMessage(t *testing.T, rec *httptest.ResponseRecorder, code int, success bool, message string) map[string]any {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if got, _ := body["success"].(bool); got != success {
		t.Fatalf("success = %v, want %v", body["success"], success)
	}
	if got, _ := body["message"].(string); got != message {
		t.Fatalf("message = %q, want %q", body["message"], message)
	}
	return body
}
