package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) SendEnrollmentConfirmation(_ context.Context, _ SendEnrollmentConfirmationInput) error {
	s.calls++
	return s.err
}

func (s *stubNotifier) SendApprovalNotice(_ context.Context, _ SendApprovalNoticeInput) error {
	s.calls++
	return s.err
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	stub := &stubNotifier{err: errors.New("provider down")}

	pn := NewProtectedNotifier(stub, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})

	in := SendEnrollmentConfirmationInput{Email: "a@b.test"}

	for i := 0; i < 2; i++ {
		if err := pn.SendEnrollmentConfirmation(context.Background(), in); err == nil {
			t.Fatal("expected provider error")
		}
	}

	// third call must fail fast without touching the provider
	if err := pn.SendEnrollmentConfirmation(context.Background(), in); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if stub.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", stub.calls)
	}
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	stub := &stubNotifier{err: errors.New("provider down")}

	pn := NewProtectedNotifier(stub, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         time.Nanosecond,
	})

	in := SendApprovalNoticeInput{EntityKind: "shop", EntityID: "s-1"}

	if err := pn.SendApprovalNotice(context.Background(), in); err == nil {
		t.Fatal("expected provider error")
	}

	time.Sleep(time.Millisecond) // let the cooldown pass

	// provider recovered; the half-open trial should close the circuit
	stub.err = nil

	if err := pn.SendApprovalNotice(context.Background(), in); err != nil {
		t.Fatalf("half-open trial failed: %v", err)
	}

	if err := pn.SendApprovalNotice(context.Background(), in); err != nil {
		t.Fatalf("closed-state send failed: %v", err)
	}
}

func TestBreakerGuardsBothSends(t *testing.T) {
	stub := &stubNotifier{err: errors.New("provider down")}

	pn := NewProtectedNotifier(stub, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         time.Hour,
	})

	if err := pn.SendEnrollmentConfirmation(context.Background(), SendEnrollmentConfirmationInput{}); err == nil {
		t.Fatal("expected provider error")
	}

	// the breaker state is shared, so the other send fails fast too
	if err := pn.SendApprovalNotice(context.Background(), SendApprovalNoticeInput{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}
