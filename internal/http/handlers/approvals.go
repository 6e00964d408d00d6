package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nomadworks/tourhub/internal/domain/job"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/jobs"
)

// moderation endpoints share these two collaborators

type ActorLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type JobsEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// loadActor resolves the authenticated user row; community admins need their
// communityId for scope checks and the token does not carry it.
func loadActor(ctx *gin.Context, cctx context.Context, users ActorLoader, userID string) (user.User, bool) {
	u, err := users.GetByID(cctx, userID)

	if err != nil {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return user.User{}, false
	}

	return u, true
}

// enqueueApprovalNotice is best effort: a lost notification must never roll
// back a committed moderation decision.
func enqueueApprovalNotice(cctx context.Context, enqueuer JobsEnqueuer, entityKind, entityID, ownerID, newStatus, reason string) {
	payload := jobs.ApprovalNoticePayload{
		EntityKind:  entityKind,
		EntityID:    entityID,
		OwnerID:     ownerID,
		NewStatus:   newStatus,
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}

	raw, err := payload.JSON()

	if err != nil {
		slog.Default().Warn("approval notice payload encode failed", "entity_id", entityID, "error", err)
		return
	}

	key := "approval:" + entityKind + ":" + entityID + ":" + newStatus

	_, err = enqueuer.Create(cctx, job.CreateRequest{
		Type:           string(jobs.JobApprovalNotice),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
	})

	if err != nil {
		slog.Default().Warn("approval notice enqueue failed", "entity_id", entityID, "error", err)
	}
}
