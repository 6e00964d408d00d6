package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nomadworks/tourhub/internal/domain/approval"
)

var (
	ErrNotFound     = errors.New("event not found")
	ErrInvalidPhase = errors.New("invalid event phase transition")
)

// Phase is the scheduling lifecycle of a community event, orthogonal to the
// approval status. Only ACTIVE+OPEN events are publicly listed.
type Phase string

const (
	PhaseOpen      Phase = "OPEN"
	PhaseClosed    Phase = "CLOSED"
	PhaseCancelled Phase = "CANCELLED"
)

func (p Phase) IsValid() bool {
	switch p {
	case PhaseOpen, PhaseClosed, PhaseCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo: OPEN may close or cancel, CLOSED may cancel, CANCELLED is
// terminal.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseOpen:
		return next == PhaseClosed || next == PhaseCancelled
	case PhaseClosed:
		return next == PhaseCancelled
	default:
		return false
	}
}

type Event struct {
	ID           string          `json:"id"`
	CommunityID  string          `json:"communityId"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Venue        string          `json:"venue,omitempty"`
	StartAt      time.Time       `json:"startAt"`
	Status       approval.Status `json:"status"`
	Phase        Phase           `json:"phase"`
	RejectReason *string         `json:"rejectReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type CreateEventRequest struct {
	CommunityID string    `json:"communityId" binding:"required,uuid"`
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Description string    `json:"description" binding:"omitempty,max=1000"`
	Venue       string    `json:"venue" binding:"omitempty,max=200"`
	StartAt     time.Time `json:"startAt" binding:"required"`
}

func NewFromCreateRequest(req CreateEventRequest) Event {
	now := time.Now().UTC()

	return Event{
		ID:          uuid.NewString(),
		CommunityID: req.CommunityID,
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartAt:     req.StartAt,
		Status:      approval.StatusPending,
		Phase:       PhaseOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
