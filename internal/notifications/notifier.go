package notifications

import "context"

type SendEnrollmentConfirmationInput struct {
	Email         string
	Firstname     string
	TicketCode    string
	WorkshopID    string
	WorkshopTitle string
	EnrollmentID  string
}

type SendApprovalNoticeInput struct {
	OwnerID    string
	EntityKind string // shop|workshop|event
	EntityID   string
	NewStatus  string
	Reason     string
}

type Notifier interface {
	SendEnrollmentConfirmation(ctx context.Context, input SendEnrollmentConfirmationInput) error
	SendApprovalNotice(ctx context.Context, input SendApprovalNoticeInput) error
}
