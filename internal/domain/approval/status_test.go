package approval

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending_to_active", StatusPending, StatusActive, true},
		{"pending_to_rejected", StatusPending, StatusRejected, true},
		{"active_to_active", StatusActive, StatusActive, false},
		{"active_to_rejected", StatusActive, StatusRejected, false},
		{"rejected_to_active", StatusRejected, StatusActive, false},
		{"rejected_to_pending", StatusRejected, StatusPending, false},
		{"active_to_pending", StatusActive, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusActive, StatusRejected} {
		if !s.IsValid() {
			t.Fatalf("%s should be valid", s)
		}
	}

	if Status("OPEN").IsValid() {
		t.Fatal("OPEN is an event phase, not an approval status")
	}
}
