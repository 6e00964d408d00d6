package memory

import (
	"sync"
	"time"

	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
)

// WorkshopsRepo is a mutex-guarded map store used by tests and local
// development. It enforces the same seat-ledger guard as the SQL repo.
type WorkshopsRepo struct {
	mu    sync.RWMutex
	items map[string]workshop.Workshop
}

func NewWorkshopsRepo() *WorkshopsRepo {
	return &WorkshopsRepo{
		items: make(map[string]workshop.Workshop),
	}
}

func (r *WorkshopsRepo) Create(req workshop.CreateWorkshopRequest) (workshop.Workshop, error) {
	w := workshop.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[w.ID] = w
	r.mu.Unlock()

	return w, nil
}

func (r *WorkshopsRepo) Put(w workshop.Workshop) {
	r.mu.Lock()
	r.items[w.ID] = w
	r.mu.Unlock()
}

func (r *WorkshopsRepo) GetByID(id string) (workshop.Workshop, error) {
	r.mu.RLock()
	w, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return workshop.Workshop{}, workshop.ErrNotFound
	}

	return w, nil
}

// Reserve applies the conditional check-and-increment under the lock, the
// in-memory equivalent of the guarded UPDATE.
func (r *WorkshopsRepo) Reserve(id string, participants int) (int, error) {
	if participants < 1 {
		return 0, workshop.ErrInvalidParticipants
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.items[id]

	if !ok {
		return 0, workshop.ErrNotFound
	}

	if w.Status != approval.StatusActive {
		return 0, workshop.ErrNotEnrollable
	}

	if w.SeatsBooked+participants > w.SeatLimit {
		return 0, workshop.ErrCapacityExceeded
	}

	w.SeatsBooked += participants
	w.UpdatedAt = time.Now().UTC()
	r.items[id] = w

	return w.SeatsBooked, nil
}

func (r *WorkshopsRepo) Release(id string, participants int) (int, error) {
	if participants < 1 {
		return 0, workshop.ErrInvalidParticipants
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.items[id]

	if !ok {
		return 0, workshop.ErrNotFound
	}

	if w.SeatsBooked-participants < 0 {
		return 0, workshop.ErrReleaseExceedsBooked
	}

	w.SeatsBooked -= participants
	w.UpdatedAt = time.Now().UTC()
	r.items[id] = w

	return w.SeatsBooked, nil
}
