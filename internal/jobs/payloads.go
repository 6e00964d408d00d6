package jobs

import (
	"encoding/json"
	"time"
)

// EnrollmentConfirmationPayload carries everything the worker needs to send
// the e-ticket without loading the enrollment row again. Keep payloads
// minimal and ID-based where the data can go stale.
type EnrollmentConfirmationPayload struct {
	EnrollmentID  string    `json:"enrollmentId"`
	WorkshopID    string    `json:"workshopId"`
	Email         string    `json:"email"`
	Firstname     string    `json:"firstname"`
	TicketCode    string    `json:"ticketCode"`
	WorkshopTitle string    `json:"workshopTitle"`
	WorkshopDate  time.Time `json:"workshopDate"`
	RequestedAt   time.Time `json:"requestedAt"`
}

func (p EnrollmentConfirmationPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// ApprovalNoticePayload tells an owner their shop/workshop/event was
// approved or rejected.
type ApprovalNoticePayload struct {
	EntityKind  string    `json:"entityKind"` // shop|workshop|event
	EntityID    string    `json:"entityId"`
	OwnerID     string    `json:"ownerId"`
	NewStatus   string    `json:"newStatus"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (p ApprovalNoticePayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
