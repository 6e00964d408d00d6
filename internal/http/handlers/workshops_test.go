package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomadworks/tourhub/internal/cache"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/shop"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
	"github.com/nomadworks/tourhub/internal/http/handlers"
)

// fakeWorkshopsStore implements handlers.WorkshopsStore.

type fakeWorkshopsStore struct {
	createFn  func(ctx context.Context, req workshop.CreateWorkshopRequest) (workshop.Workshop, error)
	getFn     func(ctx context.Context, id string) (workshop.Workshop, error)
	listFn    func(ctx context.Context, filter workshop.ListFilter) ([]workshop.Workshop, int, error)
	updateFn  func(ctx context.Context, id string, req workshop.UpdateWorkshopRequest) (workshop.Workshop, error)
	approveFn func(ctx context.Context, id string) error
	rejectFn  func(ctx context.Context, id, reason string) error
}

func (f *fakeWorkshopsStore) Create(ctx context.Context, req workshop.CreateWorkshopRequest) (workshop.Workshop, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}

	return workshop.Workshop{}, nil
}

func (f *fakeWorkshopsStore) GetByID(ctx context.Context, id string) (workshop.Workshop, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return workshop.Workshop{}, nil
}

func (f *fakeWorkshopsStore) ListActive(ctx context.Context, filter workshop.ListFilter) ([]workshop.Workshop, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}

	return nil, 0, nil
}

func (f *fakeWorkshopsStore) Update(ctx context.Context, id string, req workshop.UpdateWorkshopRequest) (workshop.Workshop, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}

	return workshop.Workshop{}, nil
}

func (f *fakeWorkshopsStore) Approve(ctx context.Context, id string) error {
	if f.approveFn != nil {
		return f.approveFn(ctx, id)
	}

	return nil
}

func (f *fakeWorkshopsStore) Reject(ctx context.Context, id, reason string) error {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, id, reason)
	}

	return nil
}

func TestCreateWorkshopHandler(t *testing.T) {
	now := time.Now().UTC()
	shopID := newUUID()
	ownerID := newUUID()
	communityID := newUUID()

	validBody := `{
		"shopId": "` + shopID + `",
		"title": "Pottery for Beginners",
		"description": "Two hours at the wheel",
		"priceCents": 2500,
		"seatLimit": 8,
		"startAt": "` + now.Add(72*time.Hour).Format(time.RFC3339) + `"
	}`

	tests := []struct {
		name           string
		body           string
		actorID        string
		shopStatus     approval.Status
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           validBody,
			actorID:        ownerID,
			shopStatus:     approval.StatusActive,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "pending_shop_cannot_host",
			body:           validBody,
			actorID:        ownerID,
			shopStatus:     approval.StatusPending,
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "not_the_shop_owner",
			body:           validBody,
			actorID:        newUUID(),
			shopStatus:     approval.StatusActive,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "validation_error",
			body:           `{"title": ""}`,
			actorID:        ownerID,
			shopStatus:     approval.StatusActive,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			shops := &fakeShopsRepo{
				getFn: func(ctx context.Context, id string) (shop.Shop, error) {
					return shop.Shop{
						ID:          shopID,
						OwnerID:     ownerID,
						CommunityID: communityID,
						Status:      tt.shopStatus,
					}, nil
				},
			}

			repo := &fakeWorkshopsStore{
				createFn: func(ctx context.Context, req workshop.CreateWorkshopRequest) (workshop.Workshop, error) {
					if req.CommunityID != communityID {
						return workshop.Workshop{}, errors.New("community not inherited from shop")
					}
					return workshop.NewFromCreateRequest(req), nil
				},
			}

			h := handlers.NewWorkshopsHandler(repo, shops, &fakeUsersRepo{}, &fakeJobs{}, nil)
			r := setupAuthedRouter(http.MethodPost, "/workshops", tt.actorID, "owner@example.com", user.RoleShopOwner, h.Create)

			req := httptest.NewRequest(http.MethodPost, "/workshops", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUpdateWorkshopHandler_SeatLimitBelowBooked(t *testing.T) {
	now := time.Now().UTC()
	workshopID := newUUID()
	shopID := newUUID()
	ownerID := newUUID()

	repo := &fakeWorkshopsStore{
		getFn: func(ctx context.Context, id string) (workshop.Workshop, error) {
			return workshop.Workshop{ID: workshopID, ShopID: shopID, SeatLimit: 10, SeatsBooked: 6}, nil
		},
		updateFn: func(ctx context.Context, id string, req workshop.UpdateWorkshopRequest) (workshop.Workshop, error) {
			return workshop.Workshop{}, workshop.ErrSeatLimitBelowBooked
		},
	}

	shops := &fakeShopsRepo{
		getFn: func(ctx context.Context, id string) (shop.Shop, error) {
			return shop.Shop{ID: shopID, OwnerID: ownerID}, nil
		},
	}

	h := handlers.NewWorkshopsHandler(repo, shops, &fakeUsersRepo{}, &fakeJobs{}, nil)
	r := setupAuthedRouter(http.MethodPut, "/workshops/:id", ownerID, "owner@example.com", user.RoleShopOwner, h.Update)

	body := `{
		"title": "Pottery for Beginners",
		"priceCents": 2500,
		"seatLimit": 4,
		"startAt": "` + now.Add(72*time.Hour).Format(time.RFC3339) + `"
	}`

	req := httptest.NewRequest(http.MethodPut, "/workshops/"+workshopID, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}
}

func TestGetWorkshopHandler_HidesUnapproved(t *testing.T) {
	workshopID := newUUID()

	repo := &fakeWorkshopsStore{
		getFn: func(ctx context.Context, id string) (workshop.Workshop, error) {
			return workshop.Workshop{ID: workshopID, Status: approval.StatusPending}, nil
		},
	}

	h := handlers.NewWorkshopsHandler(repo, &fakeShopsRepo{}, &fakeUsersRepo{}, &fakeJobs{}, nil)
	r := setupRouter(http.MethodGet, "/workshops/:id", h.GetByID)

	req := httptest.NewRequest(http.MethodGet, "/workshops/"+workshopID, nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("pending workshop should be invisible, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestListWorkshopsHandler_CacheHit(t *testing.T) {
	now := time.Now().UTC()

	calls := 0
	repo := &fakeWorkshopsStore{
		listFn: func(ctx context.Context, filter workshop.ListFilter) ([]workshop.Workshop, int, error) {
			calls++
			return []workshop.Workshop{
				{ID: newUUID(), Title: "Pottery", Status: approval.StatusActive, StartAt: now},
			}, 1, nil
		},
	}

	c := cache.NewMemory(30 * time.Second)

	h := handlers.NewWorkshopsHandler(repo, &fakeShopsRepo{}, &fakeUsersRepo{}, &fakeJobs{}, c)
	r := setupRouter(http.MethodGet, "/workshops", h.List)

	// first request: miss, repo called
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/workshops?limit=20", nil))

	if w1.Code != http.StatusOK {
		t.Fatalf("first call got %d body=%s", w1.Code, w1.Body.String())
	}

	// second request: hit, repo not called again
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/workshops?limit=20", nil))

	if w2.Code != http.StatusOK {
		t.Fatalf("second call got %d body=%s", w2.Code, w2.Body.String())
	}

	if calls != 1 {
		t.Fatalf("expected repo calls=1, got %d", calls)
	}

	// a different filter is a different cache key
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/workshops?limit=50", nil))

	if w3.Code != http.StatusOK {
		t.Fatalf("third call got %d body=%s", w3.Code, w3.Body.String())
	}

	if calls != 2 {
		t.Fatalf("expected repo calls=2 after filter change, got %d", calls)
	}
}

// An approval transition must not keep serving the pre-transition listing
// for the rest of the TTL: moderating drops the cache generation, so the
// next browse request goes back to the repository.
func TestListWorkshopsHandler_ApprovalInvalidatesCache(t *testing.T) {
	now := time.Now().UTC()
	workshopID := newUUID()
	shopID := newUUID()
	communityID := newUUID()
	adminID := newUUID()

	calls := 0
	repo := &fakeWorkshopsStore{
		listFn: func(ctx context.Context, filter workshop.ListFilter) ([]workshop.Workshop, int, error) {
			calls++
			return []workshop.Workshop{
				{ID: workshopID, Title: "Pottery", Status: approval.StatusActive, StartAt: now},
			}, 1, nil
		},
		getFn: func(ctx context.Context, id string) (workshop.Workshop, error) {
			return workshop.Workshop{
				ID:          workshopID,
				ShopID:      shopID,
				CommunityID: communityID,
				Status:      approval.StatusPending,
			}, nil
		},
	}

	shops := &fakeShopsRepo{
		getFn: func(ctx context.Context, id string) (shop.Shop, error) {
			return shop.Shop{ID: shopID, OwnerID: newUUID(), CommunityID: communityID}, nil
		},
	}

	users := &fakeUsersRepo{
		getFn: func(ctx context.Context, id string) (user.User, error) {
			cid := communityID
			return user.User{ID: id, Role: user.RoleCommunityAdmin, CommunityID: &cid}, nil
		},
	}

	c := cache.NewMemory(30 * time.Second)
	h := handlers.NewWorkshopsHandler(repo, shops, users, &fakeJobs{}, c)

	listRouter := setupRouter(http.MethodGet, "/workshops", h.List)
	approveRouter := setupAuthedRouter(http.MethodPost, "/workshops/:id/approve", adminID, "admin@example.com", user.RoleCommunityAdmin, h.Approve)

	list := func() {
		t.Helper()
		w := httptest.NewRecorder()
		listRouter.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workshops?limit=20", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("list got %d body=%s", w.Code, w.Body.String())
		}
	}

	list()
	list()

	if calls != 1 {
		t.Fatalf("expected the second list to hit the cache, repo calls = %d", calls)
	}

	w := httptest.NewRecorder()
	approveRouter.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/workshops/"+workshopID+"/approve", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("approve got %d body=%s", w.Code, w.Body.String())
	}

	list()

	if calls != 2 {
		t.Fatalf("expected the post-approval list to bypass the cache, repo calls = %d", calls)
	}
}

func TestModerateWorkshopHandler(t *testing.T) {
	workshopID := newUUID()
	shopID := newUUID()
	communityID := newUUID()
	adminID := newUUID()

	pending := workshop.Workshop{
		ID:          workshopID,
		ShopID:      shopID,
		CommunityID: communityID,
		Status:      approval.StatusPending,
	}

	users := &fakeUsersRepo{
		getFn: func(ctx context.Context, id string) (user.User, error) {
			cid := communityID
			return user.User{ID: id, Role: user.RoleCommunityAdmin, CommunityID: &cid}, nil
		},
	}

	t.Run("approve_notifies_shop_owner", func(t *testing.T) {
		ownerID := newUUID()

		repo := &fakeWorkshopsStore{
			getFn: func(ctx context.Context, id string) (workshop.Workshop, error) {
				return pending, nil
			},
		}

		shops := &fakeShopsRepo{
			getFn: func(ctx context.Context, id string) (shop.Shop, error) {
				return shop.Shop{ID: shopID, OwnerID: ownerID, CommunityID: communityID}, nil
			},
		}

		jobs := &fakeJobs{}

		h := handlers.NewWorkshopsHandler(repo, shops, users, jobs, nil)
		r := setupAuthedRouter(http.MethodPost, "/workshops/:id/approve", adminID, "admin@example.com", user.RoleCommunityAdmin, h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/workshops/"+workshopID+"/approve", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		if len(jobs.created) != 1 {
			t.Fatalf("expected one approval notice, got %d", len(jobs.created))
		}
	})

	t.Run("double_approve_conflicts", func(t *testing.T) {
		repo := &fakeWorkshopsStore{
			getFn: func(ctx context.Context, id string) (workshop.Workshop, error) {
				active := pending
				active.Status = approval.StatusActive
				return active, nil
			},
			approveFn: func(ctx context.Context, id string) error {
				return approval.ErrInvalidTransition
			},
		}

		h := handlers.NewWorkshopsHandler(repo, &fakeShopsRepo{}, users, &fakeJobs{}, nil)
		r := setupAuthedRouter(http.MethodPost, "/workshops/:id/approve", adminID, "admin@example.com", user.RoleCommunityAdmin, h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/workshops/"+workshopID+"/approve", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
		}
	})
}
