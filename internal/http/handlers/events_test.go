package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/event"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/http/handlers"
)

// fakeEventsStore implements handlers.EventsStore.

type fakeEventsStore struct {
	createFn   func(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	getFn      func(ctx context.Context, id string) (event.Event, error)
	listFn     func(ctx context.Context, communityID *string) ([]event.Event, error)
	approveFn  func(ctx context.Context, id string) error
	rejectFn   func(ctx context.Context, id, reason string) error
	setPhaseFn func(ctx context.Context, id string, next event.Phase) (event.Event, error)
}

func (f *fakeEventsStore) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}

	return event.NewFromCreateRequest(req), nil
}

func (f *fakeEventsStore) GetByID(ctx context.Context, id string) (event.Event, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return event.Event{}, nil
}

func (f *fakeEventsStore) ListPublic(ctx context.Context, communityID *string) ([]event.Event, error) {
	if f.listFn != nil {
		return f.listFn(ctx, communityID)
	}

	return nil, nil
}

func (f *fakeEventsStore) Approve(ctx context.Context, id string) error {
	if f.approveFn != nil {
		return f.approveFn(ctx, id)
	}

	return nil
}

func (f *fakeEventsStore) Reject(ctx context.Context, id, reason string) error {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, id, reason)
	}

	return nil
}

func (f *fakeEventsStore) SetPhase(ctx context.Context, id string, next event.Phase) (event.Event, error) {
	if f.setPhaseFn != nil {
		return f.setPhaseFn(ctx, id, next)
	}

	return event.Event{}, nil
}

func communityAdminLoader(communityID string) *fakeUsersRepo {
	return &fakeUsersRepo{
		getFn: func(ctx context.Context, id string) (user.User, error) {
			cid := communityID
			return user.User{ID: id, Role: user.RoleCommunityAdmin, CommunityID: &cid}, nil
		},
	}
}

func TestCreateEventHandler(t *testing.T) {
	now := time.Now().UTC()
	communityID := newUUID()
	otherCommunityID := newUUID()
	adminID := newUUID()

	body := `{
		"communityId": "` + communityID + `",
		"title": "Harvest Festival",
		"venue": "Town Square",
		"startAt": "` + now.Add(240*time.Hour).Format(time.RFC3339) + `"
	}`

	tests := []struct {
		name           string
		users          *fakeUsersRepo
		wantStatusCode int
	}{
		{
			name:           "own_community_admin_creates",
			users:          communityAdminLoader(communityID),
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "foreign_community_admin_forbidden",
			users:          communityAdminLoader(otherCommunityID),
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewEventsHandler(&fakeEventsStore{}, tt.users, &fakeJobs{})
			r := setupAuthedRouter(http.MethodPost, "/events", adminID, "admin@example.com", user.RoleCommunityAdmin, h.Create)

			req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestEventPhaseHandler(t *testing.T) {
	eventID := newUUID()
	communityID := newUUID()
	adminID := newUUID()

	open := event.Event{
		ID:          eventID,
		CommunityID: communityID,
		Status:      approval.StatusActive,
		Phase:       event.PhaseOpen,
	}

	tests := []struct {
		name           string
		users          *fakeUsersRepo
		storeSetup     func(*fakeEventsStore)
		wantStatusCode int
	}{
		{
			name:  "close_open_event",
			users: communityAdminLoader(communityID),
			storeSetup: func(f *fakeEventsStore) {
				f.getFn = func(ctx context.Context, id string) (event.Event, error) {
					return open, nil
				}
				f.setPhaseFn = func(ctx context.Context, id string, next event.Phase) (event.Event, error) {
					if next != event.PhaseClosed {
						t.Fatalf("expected CLOSED, got %s", next)
					}
					out := open
					out.Phase = next
					return out, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:  "cancelled_event_is_terminal",
			users: communityAdminLoader(communityID),
			storeSetup: func(f *fakeEventsStore) {
				f.getFn = func(ctx context.Context, id string) (event.Event, error) {
					cancelled := open
					cancelled.Phase = event.PhaseCancelled
					return cancelled, nil
				}
				f.setPhaseFn = func(ctx context.Context, id string, next event.Phase) (event.Event, error) {
					return event.Event{}, event.ErrInvalidPhase
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:  "foreign_admin_forbidden",
			users: communityAdminLoader(newUUID()),
			storeSetup: func(f *fakeEventsStore) {
				f.getFn = func(ctx context.Context, id string) (event.Event, error) {
					return open, nil
				}
			},
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeEventsStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewEventsHandler(store, tt.users, &fakeJobs{})
			r := setupAuthedRouter(http.MethodPost, "/events/:id/close", adminID, "admin@example.com", user.RoleCommunityAdmin, h.Close)

			req := httptest.NewRequest(http.MethodPost, "/events/"+eventID+"/close", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestModerateEventHandler(t *testing.T) {
	eventID := newUUID()
	adminID := newUUID()

	pending := event.Event{
		ID:     eventID,
		Status: approval.StatusPending,
		Phase:  event.PhaseOpen,
	}

	t.Run("approve_enqueues_notice", func(t *testing.T) {
		store := &fakeEventsStore{
			getFn: func(ctx context.Context, id string) (event.Event, error) {
				return pending, nil
			},
		}

		jobs := &fakeJobs{}

		h := handlers.NewEventsHandler(store, &fakeUsersRepo{}, jobs)
		r := setupAuthedRouter(http.MethodPost, "/events/:id/approve", adminID, "admin@example.com", user.RolePlatformAdmin, h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/events/"+eventID+"/approve", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		if len(jobs.created) != 1 {
			t.Fatalf("expected one approval notice, got %d", len(jobs.created))
		}
	})

	t.Run("reject_requires_reason", func(t *testing.T) {
		h := handlers.NewEventsHandler(&fakeEventsStore{}, &fakeUsersRepo{}, &fakeJobs{})
		r := setupAuthedRouter(http.MethodPost, "/events/:id/reject", adminID, "admin@example.com", user.RolePlatformAdmin, h.Reject)

		req := httptest.NewRequest(http.MethodPost, "/events/"+eventID+"/reject", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
		}
	})
}
