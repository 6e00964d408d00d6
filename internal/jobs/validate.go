package jobs

import "strings"

// ValidatePayload performs minimal validation on decoded payloads before a
// job row is enqueued.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobEnrollmentConfirmation:
		var p EnrollmentConfirmationPayload
		switch v := payload.(type) {
		case EnrollmentConfirmationPayload:
			p = v
		case *EnrollmentConfirmationPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.EnrollmentID) == "" || trim(p.WorkshopID) == "" || trim(p.Email) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobApprovalNotice:
		var p ApprovalNoticePayload
		switch v := payload.(type) {
		case ApprovalNoticePayload:
			p = v
		case *ApprovalNoticePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.EntityKind) == "" || trim(p.EntityID) == "" || trim(p.NewStatus) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
