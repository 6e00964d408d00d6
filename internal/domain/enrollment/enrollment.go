package enrollment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusPending   Status = "PENDING"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPending PaymentStatus = "PENDING"
)

var (
	ErrNotFound         = errors.New("enrollment not found")
	ErrAlreadyCancelled = errors.New("enrollment already cancelled")
)

// Enrollment is one booking transaction. WorkshopTitle and WorkshopDate are
// copied at booking time so the e-ticket renders without a join; they are a
// snapshot, not a live reference.
type Enrollment struct {
	ID              string        `json:"id"`
	WorkshopID      string        `json:"workshopId"`
	UserID          string        `json:"userId"`
	Participants    int           `json:"participants"`
	TotalPriceCents int64         `json:"totalPriceCents"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	TicketCode      string        `json:"ticketCode"`
	WorkshopTitle   string        `json:"workshopTitle"`
	WorkshopDate    time.Time     `json:"workshopDate"`
	IdempotencyKey  *string       `json:"-"`
	EnrolledAt      time.Time     `json:"enrolledAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type EnrollRequest struct {
	WorkshopID   string `json:"-"`
	UserID       string `json:"-"`
	Participants int    `json:"participants" binding:"required,min=1"`
	// optional Idempotency-Key header, carried outside the JSON body
	IdempotencyKey *string `json:"-"`
}

// New builds a CONFIRMED enrollment against a workshop snapshot. Price is
// fixed at booking time: participants * workshop price.
func New(w workshop.Workshop, req EnrollRequest) Enrollment {
	now := time.Now().UTC()

	return Enrollment{
		ID:              uuid.NewString(),
		WorkshopID:      w.ID,
		UserID:          req.UserID,
		Participants:    req.Participants,
		TotalPriceCents: int64(req.Participants) * w.PriceCents,
		Status:          StatusConfirmed,
		PaymentStatus:   PaymentPending,
		TicketCode:      NewTicketCode(),
		WorkshopTitle:   w.Title,
		WorkshopDate:    w.StartAt,
		IdempotencyKey:  req.IdempotencyKey,
		EnrolledAt:      now,
		UpdatedAt:       now,
	}
}

// NewTicketCode returns the short human-readable code printed on the
// e-ticket. Uniqueness is backed by the enrollment id; the code is only a
// display artifact.
func NewTicketCode() string {
	id := uuid.NewString()
	return "TH-" + id[:8]
}
