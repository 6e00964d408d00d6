package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeEnrollmentConfirmation(t *testing.T) {
	in := EnrollmentConfirmationPayload{
		EnrollmentID:  "e-1",
		WorkshopID:    "w-1",
		Email:         "tourist@example.com",
		Firstname:     "Ada",
		TicketCode:    "TH-ab12cd34",
		WorkshopTitle: "Weaving 101",
		WorkshopDate:  time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC),
		RequestedAt:   time.Now().UTC(),
	}

	raw, err := EncodePayload(JobEnrollmentConfirmation, in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	out, err := DecodePayload(JobEnrollmentConfirmation, raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got, ok := out.(EnrollmentConfirmationPayload)
	if !ok {
		t.Fatalf("decoded wrong type %T", out)
	}

	if got.EnrollmentID != in.EnrollmentID || got.TicketCode != in.TicketCode {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestEncodeRejectsMismatchedPayload(t *testing.T) {
	_, err := EncodePayload(JobEnrollmentConfirmation, ApprovalNoticePayload{})

	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("got %v, want ErrPayloadTypeMismatch", err)
	}
}

func TestDecodeRejectsUnknownTypeAndEmptyPayload(t *testing.T) {
	if _, err := DecodePayload(JobType("mystery"), []byte(`{}`)); !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("got %v, want ErrInvalidJobType", err)
	}

	if _, err := DecodePayload(JobEnrollmentConfirmation, nil); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("got %v, want ErrInvalidJobPayload", err)
	}
}

func TestValidatePayload(t *testing.T) {
	valid := EnrollmentConfirmationPayload{
		EnrollmentID: "e-1",
		WorkshopID:   "w-1",
		Email:        "tourist@example.com",
	}

	if err := ValidatePayload(JobEnrollmentConfirmation, valid); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	missing := valid
	missing.Email = "   "

	if err := ValidatePayload(JobEnrollmentConfirmation, missing); !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("got %v, want ErrInvalidJobPayload", err)
	}
}
