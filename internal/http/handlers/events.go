package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/event"
	"github.com/nomadworks/tourhub/internal/http/middlewares"
	"github.com/nomadworks/tourhub/internal/utils"
)

type EventsStore interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	ListPublic(ctx context.Context, communityID *string) ([]event.Event, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id, reason string) error
	SetPhase(ctx context.Context, id string, next event.Phase) (event.Event, error)
}

type EventsHandler struct {
	repo  EventsStore
	users ActorLoader
	jobs  JobsEnqueuer
}

func NewEventsHandler(repo EventsStore, users ActorLoader, jobs JobsEnqueuer) *EventsHandler {
	return &EventsHandler{repo: repo, users: users, jobs: jobs}
}

// Create: community admins propose events for their own community; the
// event still goes through platform review before it is listed.
func (h *EventsHandler) Create(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	actor, ok := loadActor(ctx, cctx, h.users, userID)

	if !ok {
		return
	}

	if !actor.IsAdminFor(req.CommunityID) {
		RespondForbidden(ctx, "You may only create events for your own community")
		return
	}

	e, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	ctx.JSON(http.StatusCreated, e)
}

func (h *EventsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, e)
}

// ListPublic shows only ACTIVE events still in the OPEN phase.
func (h *EventsHandler) ListPublic(ctx *gin.Context) {
	var communityID *string

	if v := ctx.Query("communityId"); v != "" {
		if !utils.IsUUID(v) {
			RespondBadRequest(ctx, "communityId must be a valid UUID", nil)
			return
		}
		communityID = &v
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListPublic(cctx, communityID)

	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// Approve/Reject: platform review. Community admins cannot approve the
// events they proposed themselves.
func (h *EventsHandler) Approve(ctx *gin.Context) {
	h.moderate(ctx, approval.StatusActive)
}

func (h *EventsHandler) Reject(ctx *gin.Context) {
	h.moderate(ctx, approval.StatusRejected)
}

func (h *EventsHandler) moderate(ctx *gin.Context, next approval.Status) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	var reason string

	if next == approval.StatusRejected {
		var req RejectRequest

		if !BindJSON(ctx, &req) {
			return
		}

		reason = req.Reason
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not moderate event")
		return
	}

	if next == approval.StatusRejected {
		err = h.repo.Reject(cctx, id, reason)
	} else {
		err = h.repo.Approve(cctx, id)
	}

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, approval.ErrInvalidTransition):
			RespondConflict(ctx, "invalid_transition", "Event is not pending review")
		case errors.Is(err, approval.ErrMissingReason):
			RespondBadRequest(ctx, "A rejection reason is required", nil)
		default:
			RespondInternal(ctx, "Could not moderate event")
		}
		return
	}

	enqueueApprovalNotice(cctx, h.jobs, "event", e.ID, "", string(next), reason)

	ctx.JSON(http.StatusOK, gin.H{
		"eventId": id,
		"status":  string(next),
	})
}

// Close moves an OPEN event to CLOSED, Cancel to CANCELLED. The phase is a
// separate axis from the approval status.
func (h *EventsHandler) Close(ctx *gin.Context) {
	h.setPhase(ctx, event.PhaseClosed)
}

func (h *EventsHandler) Cancel(ctx *gin.Context) {
	h.setPhase(ctx, event.PhaseCancelled)
}

func (h *EventsHandler) setPhase(ctx *gin.Context, next event.Phase) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "event id must be a valid UUID", nil)
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	actor, ok := loadActor(ctx, cctx, h.users, userID)

	if !ok {
		return
	}

	current, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	if !actor.IsAdminFor(current.CommunityID) {
		RespondForbidden(ctx, "You may only manage events of your own community")
		return
	}

	e, err := h.repo.SetPhase(cctx, id, next)

	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, event.ErrInvalidPhase):
			RespondConflict(ctx, "invalid_phase_transition", "Event cannot move to this phase.")
		default:
			RespondInternal(ctx, "Could not update event")
		}
		return
	}

	ctx.JSON(http.StatusOK, e)
}
