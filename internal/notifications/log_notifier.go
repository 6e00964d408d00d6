package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nomadworks/tourhub/internal/actorctx"
)

// LogNotifier stands in for a real email/SMS provider. The env knobs let the
// worker tests and local runs simulate a slow or failing provider.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}

func (n *LogNotifier) SendEnrollmentConfirmation(ctx context.Context, in SendEnrollmentConfirmationInput) error {
	if err := n.simulateProvider(ctx); err != nil {
		return err
	}

	log := n.log

	if uid, ok := actorctx.UserIDFrom(ctx); ok {
		log = log.With("user_id", uid)
	}

	log.InfoContext(ctx, "notification.enrollment_confirmation",
		"email", in.Email,
		"firstname", in.Firstname,
		"ticket_code", in.TicketCode,
		"workshop_id", in.WorkshopID,
		"enrollment_id", in.EnrollmentID,
	)
	return nil
}

func (n *LogNotifier) SendApprovalNotice(ctx context.Context, in SendApprovalNoticeInput) error {
	if err := n.simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.approval_notice",
		"owner_id", in.OwnerID,
		"entity_kind", in.EntityKind,
		"entity_id", in.EntityID,
		"new_status", in.NewStatus,
		"reason", in.Reason,
	)
	return nil
}
