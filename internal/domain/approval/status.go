package approval

import "errors"

// Status is the moderation gate shared by shops, workshops and community
// events. Entities are created PENDING and become publicly visible only
// once a community admin approves them.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusRejected Status = "REJECTED"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingReason     = errors.New("rejection reason is required")
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the one-way gate: PENDING may move to ACTIVE or
// REJECTED; nothing ever leaves ACTIVE or REJECTED.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusPending {
		return false
	}

	return next == StatusActive || next == StatusRejected
}
