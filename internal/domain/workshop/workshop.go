package workshop

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nomadworks/tourhub/internal/domain/approval"
)

var (
	ErrNotFound = errors.New("workshop not found")
	// the workshop exists but is not ACTIVE, so it cannot take bookings
	ErrNotEnrollable = errors.New("workshop is not open for enrollment")
	// reserving would push seats_booked past seat_limit
	ErrCapacityExceeded    = errors.New("workshop capacity exceeded")
	ErrInvalidParticipants = errors.New("participants must be a positive integer")
	// an edit tried to shrink seat_limit under the seats already booked
	ErrSeatLimitBelowBooked = errors.New("seat limit below seats already booked")
	// releasing would drive seats_booked below zero
	ErrReleaseExceedsBooked = errors.New("release exceeds seats booked")
)

type Workshop struct {
	ID           string          `json:"id"`
	ShopID       string          `json:"shopId"`
	CommunityID  string          `json:"communityId"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	PriceCents   int64           `json:"priceCents"`
	SeatLimit    int             `json:"seatLimit"`
	SeatsBooked  int             `json:"seatsBooked"`
	StartAt      time.Time       `json:"startAt"`
	Status       approval.Status `json:"status"`
	RejectReason *string         `json:"rejectReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// SeatsLeft is derived, never stored.
func (w Workshop) SeatsLeft() int {
	return w.SeatLimit - w.SeatsBooked
}

// CanReserve is the pure form of the capacity guard. The postgres repo
// enforces the same predicate inside a single conditional UPDATE so the
// check and the increment cannot be split across requests.
func (w Workshop) CanReserve(participants int) error {
	if participants < 1 {
		return ErrInvalidParticipants
	}

	if w.Status != approval.StatusActive {
		return ErrNotEnrollable
	}

	if w.SeatsBooked+participants > w.SeatLimit {
		return ErrCapacityExceeded
	}

	return nil
}

// with pointers if optional, it will be nil
type ListFilter struct {
	CommunityID *string
	ShopID      *string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type CreateWorkshopRequest struct {
	ShopID      string    `json:"shopId" binding:"required,uuid"`
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Description string    `json:"description" binding:"omitempty,max=1000"`
	PriceCents  int64     `json:"priceCents" binding:"required,min=0"`
	SeatLimit   int       `json:"seatLimit" binding:"required,min=1,max=500"`
	StartAt     time.Time `json:"startAt" binding:"required"`
	// resolved from the shop row, never from the body
	CommunityID string `json:"-"`
}

// a full update payload; seat_limit edits keep the invariant because the
// repo refuses to shrink below seats_booked.
type UpdateWorkshopRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Description string    `json:"description" binding:"omitempty,max=1000"`
	PriceCents  int64     `json:"priceCents" binding:"required,min=0"`
	SeatLimit   int       `json:"seatLimit" binding:"required,min=1,max=500"`
	StartAt     time.Time `json:"startAt" binding:"required"`
}

func NewFromCreateRequest(req CreateWorkshopRequest) Workshop {
	now := time.Now().UTC()

	return Workshop{
		ID:          uuid.NewString(),
		ShopID:      req.ShopID,
		CommunityID: req.CommunityID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		SeatLimit:   req.SeatLimit,
		SeatsBooked: 0,
		StartAt:     req.StartAt,
		Status:      approval.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
