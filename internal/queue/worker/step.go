package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nomadworks/tourhub/internal/actorctx"
	"github.com/nomadworks/tourhub/internal/domain/job"
	"github.com/nomadworks/tourhub/internal/jobs"
	"github.com/nomadworks/tourhub/internal/notifications"
)

// ProcessOne claims and runs a single job. The bool reports whether a job
// was available, so the caller can poll faster while there is a backlog.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	run := func() (string, error) {
		execErr := w.execute(ctx, j)

		if execErr == nil {
			return "done", nil
		}

		if isPermanent(execErr) || j.Attempts+1 >= j.MaxAttempts {
			return "failed", execErr
		}

		return "retry", execErr
	}

	var result string
	var execErr error

	if w.prom != nil {
		execErr = w.prom.ObserveJob(j.Type, func() (string, error) {
			r, e := run()
			result = r
			return r, e
		})
	} else {
		result, execErr = run()
	}

	switch result {
	case "done":
		if err := w.repo.MarkDone(ctx, j.ID); err != nil {
			_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
			return true, err
		}

	case "retry":
		runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

		if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
			return true, err
		}

		w.log.WarnContext(ctx, "job rescheduled",
			"job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "run_at", runAt, "error", execErr)

	case "failed":
		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			return true, err
		}

		w.log.ErrorContext(ctx, "job failed permanently",
			"job_id", j.ID, "type", j.Type, "attempts", j.Attempts+1, "error", execErr)
	}

	return true, nil
}

// malformed payloads never succeed on retry
func isPermanent(err error) bool {
	return errors.Is(err, jobs.ErrInvalidJobType) ||
		errors.Is(err, jobs.ErrInvalidJobPayload) ||
		errors.Is(err, jobs.ErrPayloadTypeMismatch)
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	decoded, err := jobs.DecodePayload(jobs.JobType(j.Type), j.Payload)

	if err != nil {
		return err
	}

	// carry the enqueuing user so downstream log lines can attribute the send
	if j.UserID != nil {
		ctx = actorctx.WithUserID(ctx, *j.UserID)
	}

	switch p := decoded.(type) {
	case jobs.EnrollmentConfirmationPayload:
		return w.notifier.SendEnrollmentConfirmation(ctx, notifications.SendEnrollmentConfirmationInput{
			Email:         p.Email,
			Firstname:     p.Firstname,
			TicketCode:    p.TicketCode,
			WorkshopID:    p.WorkshopID,
			WorkshopTitle: p.WorkshopTitle,
			EnrollmentID:  p.EnrollmentID,
		})

	case jobs.ApprovalNoticePayload:
		return w.notifier.SendApprovalNotice(ctx, notifications.SendApprovalNoticeInput{
			OwnerID:    p.OwnerID,
			EntityKind: p.EntityKind,
			EntityID:   p.EntityID,
			NewStatus:  p.NewStatus,
			Reason:     p.Reason,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}
