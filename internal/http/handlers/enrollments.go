package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/enrollment"
	"github.com/nomadworks/tourhub/internal/domain/job"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
	"github.com/nomadworks/tourhub/internal/http/middlewares"
	"github.com/nomadworks/tourhub/internal/jobs"
	"github.com/nomadworks/tourhub/internal/repo/postgres"
	"github.com/nomadworks/tourhub/internal/utils"
)

const idempotencyKeyHeader = "Idempotency-Key"

type EnrollmentsStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, req enrollment.EnrollRequest) (enrollment.Enrollment, error)
	CancelTx(ctx context.Context, tx pgx.Tx, enrollmentID string) (enrollment.Enrollment, error)
	GetByID(ctx context.Context, id string) (enrollment.Enrollment, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (enrollment.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]enrollment.Enrollment, error)
	ListByWorkshopCursor(
		ctx context.Context,
		workshopID string,
		limit int,
		afterEnrolledAt time.Time,
		afterID string,
	) ([]enrollment.Enrollment, *string, bool, error)
}

type TxJobsEnqueuer interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

type WorkshopsReader interface {
	GetByID(ctx context.Context, id string) (workshop.Workshop, error)
}

type EnrollmentsHandler struct {
	repo     EnrollmentsStore
	jobsRepo TxJobsEnqueuer
	users    ActorLoader
	shops    ShopsReader
	works    WorkshopsReader
}

func NewEnrollmentsHandler(repo EnrollmentsStore, jobsRepo TxJobsEnqueuer, users ActorLoader, shops ShopsReader, works WorkshopsReader) *EnrollmentsHandler {
	return &EnrollmentsHandler{
		repo:     repo,
		jobsRepo: jobsRepo,
		users:    users,
		shops:    shops,
		works:    works,
	}
}

// Enroll books seats on a workshop. The seat check and increment happen in
// one conditional UPDATE inside the transaction, and the confirmation job is
// enqueued in the same transaction, so a booking either fully exists with
// its pending notification or not at all.
func (h *EnrollmentsHandler) Enroll(ctx *gin.Context) {
	workshopID := ctx.Param("id")

	if !utils.IsUUID(workshopID) {
		RespondBadRequest(ctx, "workshop id must be a valid UUID", nil)
		return
	}

	var req enrollment.EnrollRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// URL param is the source of truth
	req.WorkshopID = workshopID

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.UserID = userID

	if key := strings.TrimSpace(ctx.GetHeader(idempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = &key
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	actor, ok := loadActor(ctx, cctx, h.users, userID)

	if !ok {
		return
	}

	tx, err := h.repo.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not enroll in workshop")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	enr, err := h.repo.CreateTx(cctx, tx, req)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrIdempotentReplay):
			h.respondReplay(ctx, cctx, userID, req.IdempotencyKey)
		case errors.Is(err, workshop.ErrNotFound):
			RespondNotFound(ctx, "Workshop not found")
		case errors.Is(err, workshop.ErrNotEnrollable):
			RespondConflict(ctx, "workshop_not_enrollable", "This workshop is not open for enrollment.")
		case errors.Is(err, workshop.ErrCapacityExceeded):
			RespondConflict(ctx, "capacity_exceeded", "Not enough seats left for this booking.")
		case errors.Is(err, workshop.ErrInvalidParticipants):
			RespondBadRequest(ctx, "participants must be a positive integer", nil)
		default:
			RespondInternal(ctx, "Could not enroll in workshop")
		}
		return
	}

	payload := jobs.EnrollmentConfirmationPayload{
		EnrollmentID:  enr.ID,
		WorkshopID:    enr.WorkshopID,
		Email:         actor.Email,
		Firstname:     actor.Firstname,
		TicketCode:    enr.TicketCode,
		WorkshopTitle: enr.WorkshopTitle,
		WorkshopDate:  enr.WorkshopDate,
		RequestedAt:   time.Now().UTC(),
	}

	raw, err := payload.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not enroll in workshop")
		return
	}

	key := "enrollment:confirm:" + enr.ID
	uid := userID

	_, err = h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           string(jobs.JobEnrollmentConfirmation),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
		UserID:         &uid,
	})

	if err != nil {
		// duplicate idempotency key inside the same tx: rare, but safe to ignore
		if !postgres.IsUniqueViolation(err) {
			RespondInternal(ctx, "Could not enroll in workshop")
			return
		}
	}

	// commit once: booking, seat increment and job land together
	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not enroll in workshop")
		return
	}

	ctx.JSON(http.StatusCreated, enr)
}

// respondReplay returns the original enrollment for a reused
// Idempotency-Key instead of double-booking. The lookup is scoped to the
// authenticated user, and the owner is re-checked before anything with a
// ticket code leaves the handler.
func (h *EnrollmentsHandler) respondReplay(ctx *gin.Context, cctx context.Context, userID string, key *string) {
	if key == nil {
		RespondConflict(ctx, "duplicate_request", "This request was already processed.")
		return
	}

	enr, err := h.repo.GetByIdempotencyKey(cctx, userID, *key)

	if err != nil || enr.UserID != userID {
		RespondConflict(ctx, "duplicate_request", "This request was already processed.")
		return
	}

	ctx.JSON(http.StatusOK, enr)
}

func (h *EnrollmentsHandler) ListMine(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByUser(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list enrollments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// Cancel releases the booked seats in the same transaction that flips the
// enrollment to CANCELLED.
func (h *EnrollmentsHandler) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "enrollment id must be a valid UUID", nil)
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	role, _ := middlewares.RoleFromContext(ctx)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	enr, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			RespondNotFound(ctx, "Enrollment not found")
			return
		}
		RespondInternal(ctx, "Could not cancel enrollment")
		return
	}

	if role != user.RolePlatformAdmin && enr.UserID != userID {
		RespondForbidden(ctx, "You can only cancel your own enrollment")
		return
	}

	tx, err := h.repo.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not cancel enrollment")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	cancelled, err := h.repo.CancelTx(cctx, tx, id)

	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrNotFound):
			RespondNotFound(ctx, "Enrollment not found")
		case errors.Is(err, enrollment.ErrAlreadyCancelled):
			RespondConflict(ctx, "already_cancelled", "Enrollment is already cancelled.")
		default:
			RespondInternal(ctx, "Could not cancel enrollment")
		}
		return
	}

	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not cancel enrollment")
		return
	}

	ctx.JSON(http.StatusOK, cancelled)
}

// Roster is the shop owner's attendee list for one workshop, keyset
// paginated on (enrolledAt, id).
func (h *EnrollmentsHandler) Roster(ctx *gin.Context) {
	workshopID := ctx.Param("id")

	if !utils.IsUUID(workshopID) {
		RespondBadRequest(ctx, "workshop id must be a valid UUID", nil)
		return
	}

	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	w, err := h.works.GetByID(cctx, workshopID)

	if err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			RespondNotFound(ctx, "Workshop not found")
			return
		}
		RespondInternal(ctx, "Could not list enrollments")
		return
	}

	actor, ok := loadActor(ctx, cctx, h.users, userID)

	if !ok {
		return
	}

	allowed := actor.IsAdminFor(w.CommunityID)

	if !allowed {
		s, sErr := h.shops.GetByID(cctx, w.ShopID)
		allowed = sErr == nil && s.OwnerID == userID
	}

	if !allowed {
		RespondForbidden(ctx, "You may only view the roster of your own workshop")
		return
	}

	// ASC keyset: the zero cursor sorts before every real row
	afterEnrolledAt := time.Time{}
	afterID := ""

	if cursor := ctx.Query("cursor"); cursor != "" {
		ts, id, err := utils.DecodeCursor(cursor)

		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}

		afterEnrolledAt = ts
		afterID = id
	}

	items, next, hasMore, err := h.repo.ListByWorkshopCursor(cctx, workshopID, limit, afterEnrolledAt, afterID)

	if err != nil {
		RespondInternal(ctx, "Could not list enrollments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"workshopId": workshopID,
		"items":      items,
		"count":      len(items),
		"limit":      limit,
		"hasMore":    hasMore,
		"nextCursor": next,
	})
}
