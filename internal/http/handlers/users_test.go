package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/http/handlers"
	"github.com/nomadworks/tourhub/internal/security"
)

type fakeProfileStore struct {
	getFn    func(ctx context.Context, id string) (user.User, error)
	updateFn func(ctx context.Context, id, newHash string) error
}

func (f *fakeProfileStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return user.User{ID: id}, nil
}

func (f *fakeProfileStore) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, newHash)
	}

	return nil
}

type fakeSessionRevoker struct {
	tx      *fakeTx
	revoked []string
}

func (f *fakeSessionRevoker) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if f.tx == nil {
		f.tx = &fakeTx{}
	}

	return f.tx, nil
}

func (f *fakeSessionRevoker) RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

func TestChangePasswordHandler(t *testing.T) {
	userID := newUUID()

	hash, err := security.HashPassword("old-password-123")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	current := user.User{ID: userID, Email: "ada@example.com", PasswordHash: hash}

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantRevoked    bool
	}{
		{
			name:           "success_revokes_sessions",
			body:           `{"currentPassword": "old-password-123", "newPassword": "new-password-456"}`,
			wantStatusCode: http.StatusNoContent,
			wantRevoked:    true,
		},
		{
			name:           "wrong_current_password",
			body:           `{"currentPassword": "not-it", "newPassword": "new-password-456"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "new_password_too_short",
			body:           `{"currentPassword": "old-password-123", "newPassword": "short"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			updated := ""

			store := &fakeProfileStore{
				getFn: func(ctx context.Context, id string) (user.User, error) {
					return current, nil
				},
				updateFn: func(ctx context.Context, id, newHash string) error {
					updated = newHash
					return nil
				},
			}

			sessions := &fakeSessionRevoker{}

			h := handlers.NewUsersHandler(store, sessions)
			r := setupAuthedRouter(http.MethodPatch, "/users/me/password", userID, current.Email, user.RoleTourist, h.ChangePassword)

			req := httptest.NewRequest(http.MethodPatch, "/users/me/password", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantRevoked {
				if len(sessions.revoked) != 1 || sessions.revoked[0] != userID {
					t.Fatalf("expected sessions revoked for %s, got %v", userID, sessions.revoked)
				}

				if updated == "" {
					t.Fatal("expected the password hash to be replaced")
				}

				if err := security.CheckPassword(updated, "new-password-456"); err != nil {
					t.Fatalf("stored hash does not match the new password: %v", err)
				}
			} else if updated != "" {
				t.Fatal("password hash must not change on a failed request")
			}
		})
	}
}

func TestMeHandler(t *testing.T) {
	userID := newUUID()

	store := &fakeProfileStore{
		getFn: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, Email: "ada@example.com", Firstname: "Ada", Role: user.RoleTourist}, nil
		},
	}

	h := handlers.NewUsersHandler(store, &fakeSessionRevoker{})
	r := setupAuthedRouter(http.MethodGet, "/users/me", userID, "ada@example.com", user.RoleTourist, h.Me)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}
