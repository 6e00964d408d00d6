package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomadworks/tourhub/internal/auth"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/http/handlers"
	"github.com/nomadworks/tourhub/internal/repo/postgres"
	"github.com/nomadworks/tourhub/internal/security"
)

type fakeUserStore struct {
	createFn     func(ctx context.Context, u user.User) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
}

func (f *fakeUserStore) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}

	return u, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}

	return user.User{}, postgres.ErrUserNotFound
}

func newTestJWT() *auth.Manager {
	return auth.NewManager("test-secret", 15*time.Minute, 7*24*time.Hour)
}

// The session paths need a live refresh-token store; these tests cover the
// branches that return before one is touched.

func TestRegisterHandler_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeUserStore)
		wantStatusCode int
	}{
		{
			name:           "missing_email",
			body:           `{"password": "longenough1", "firstname": "Ada"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "short_password",
			body:           `{"email": "a@b.com", "password": "short", "firstname": "Ada"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "admin_role_not_self_assignable",
			body:           `{"email": "a@b.com", "password": "longenough1", "firstname": "Ada", "role": "PLATFORM_ADMIN"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_email",
			body: `{"email": "taken@example.com", "password": "longenough1", "firstname": "Ada"}`,
			storeSetup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, postgres.ErrEmailAlreadyUsed
				}
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewAuthHandler(store, newTestJWT(), nil, config.Config{Env: "dev"})
			r := setupRouter(http.MethodPost, "/auth/register", h.Register)

			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	hash, err := security.HashPassword("correct-horse-battery")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	known := user.User{
		ID:           newUUID(),
		Email:        "ada@example.com",
		PasswordHash: hash,
		Role:         user.RoleTourist,
	}

	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeUserStore)
		wantStatusCode int
	}{
		{
			name: "unknown_email",
			body: `{"email": "nobody@example.com", "password": "whatever123"}`,
			storeSetup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, postgres.ErrUserNotFound
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "wrong_password",
			body: `{"email": "ada@example.com", "password": "not-the-password"}`,
			storeSetup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return known, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "malformed_body",
			body:           `{"email": "not-an-email", "password": ""}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewAuthHandler(store, newTestJWT(), nil, config.Config{Env: "dev"})
			r := setupRouter(http.MethodPost, "/auth/login", h.Login)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
