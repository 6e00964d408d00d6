package workshop

import (
	"errors"
	"testing"
	"time"

	"github.com/nomadworks/tourhub/internal/domain/approval"
)

func activeWorkshop(seatLimit, seatsBooked int) Workshop {
	return Workshop{
		ID:          "w-1",
		Title:       "Indigo dyeing",
		PriceCents:  4500,
		SeatLimit:   seatLimit,
		SeatsBooked: seatsBooked,
		StartAt:     time.Now().Add(48 * time.Hour),
		Status:      approval.StatusActive,
	}
}

func TestCanReserve(t *testing.T) {
	tests := []struct {
		name         string
		workshop     Workshop
		participants int
		wantErr      error
	}{
		{"exact_fit", activeWorkshop(8, 6), 2, nil},
		{"one_seat_over", activeWorkshop(8, 6), 3, ErrCapacityExceeded},
		{"full_workshop", activeWorkshop(8, 8), 1, ErrCapacityExceeded},
		{"zero_participants", activeWorkshop(8, 0), 0, ErrInvalidParticipants},
		{"negative_participants", activeWorkshop(8, 0), -2, ErrInvalidParticipants},
		{"single_seat", activeWorkshop(1, 0), 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.workshop.CanReserve(tt.participants)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanReserveRequiresActiveStatus(t *testing.T) {
	for _, status := range []approval.Status{approval.StatusPending, approval.StatusRejected} {
		w := activeWorkshop(10, 0)
		w.Status = status

		if err := w.CanReserve(1); !errors.Is(err, ErrNotEnrollable) {
			t.Fatalf("status %s: got %v, want ErrNotEnrollable", status, err)
		}
	}
}

func TestNewFromCreateRequestStartsPendingAndEmpty(t *testing.T) {
	w := NewFromCreateRequest(CreateWorkshopRequest{
		ShopID:      "s-1",
		CommunityID: "c-1",
		Title:       "Basket weaving",
		PriceCents:  3000,
		SeatLimit:   12,
		StartAt:     time.Now().Add(24 * time.Hour),
	})

	if w.Status != approval.StatusPending {
		t.Fatalf("new workshop status = %s, want PENDING", w.Status)
	}
	if w.SeatsBooked != 0 {
		t.Fatalf("new workshop seatsBooked = %d, want 0", w.SeatsBooked)
	}
	if w.ID == "" {
		t.Fatal("new workshop must get an id")
	}
	if w.SeatsLeft() != 12 {
		t.Fatalf("seatsLeft = %d, want 12", w.SeatsLeft())
	}
}
