package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nomadworks/tourhub/internal/cache"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/shop"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
	"github.com/nomadworks/tourhub/internal/http/middlewares"
	"github.com/nomadworks/tourhub/internal/utils"
)

type WorkshopsStore interface {
	Create(ctx context.Context, req workshop.CreateWorkshopRequest) (workshop.Workshop, error)
	GetByID(ctx context.Context, id string) (workshop.Workshop, error)
	ListActive(ctx context.Context, filter workshop.ListFilter) ([]workshop.Workshop, int, error)
	Update(ctx context.Context, id string, req workshop.UpdateWorkshopRequest) (workshop.Workshop, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id, reason string) error
}

type ShopsReader interface {
	GetByID(ctx context.Context, id string) (shop.Shop, error)
}

type WorkshopsHandler struct {
	repo  WorkshopsStore
	shops ShopsReader
	users ActorLoader
	jobs  JobsEnqueuer
	cache cache.Store
}

func NewWorkshopsHandler(repo WorkshopsStore, shops ShopsReader, users ActorLoader, jobs JobsEnqueuer, listCache cache.Store) *WorkshopsHandler {
	return &WorkshopsHandler{
		repo:  repo,
		shops: shops,
		users: users,
		jobs:  jobs,
		cache: listCache,
	}
}

func (h *WorkshopsHandler) Create(ctx *gin.Context) {
	var req workshop.CreateWorkshopRequest

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

	s, err := h.shops.GetByID(cctx, req.ShopID)

	if err != nil {
		if errors.Is(err, shop.ErrNotFound) {
			RespondNotFound(ctx, "Shop not found")
			return
		}
		RespondInternal(ctx, "Could not create workshop")
		return
	}

	if s.OwnerID != userID {
		RespondForbidden(ctx, "You may only create workshops for your own shop")
		return
	}

	// a pending or rejected shop cannot host workshops
	if s.Status != approval.StatusActive {
		RespondConflict(ctx, "shop_not_active", "Shop is not approved yet")
		return
	}

	// community is inherited from the shop, never from the body
	req.CommunityID = s.CommunityID

	w, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create workshop")
		return
	}

	ctx.JSON(http.StatusCreated, w)
}

func (h *WorkshopsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "workshop id must be a valid UUID", nil)
		return
	}

	var req workshop.UpdateWorkshopRequest

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

	current, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			RespondNotFound(ctx, "Workshop not found")
			return
		}
		RespondInternal(ctx, "Could not update workshop")
		return
	}

	s, err := h.shops.GetByID(cctx, current.ShopID)

	if err != nil {
		RespondInternal(ctx, "Could not update workshop")
		return
	}

	if s.OwnerID != userID {
		RespondForbidden(ctx, "You may only edit workshops of your own shop")
		return
	}

	w, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, workshop.ErrNotFound):
			RespondNotFound(ctx, "Workshop not found")
		case errors.Is(err, workshop.ErrSeatLimitBelowBooked):
			RespondConflict(ctx, "seat_limit_below_booked", "Seat limit cannot drop below seats already booked")
		default:
			RespondInternal(ctx, "Could not update workshop")
		}
		return
	}

	ctx.JSON(http.StatusOK, w)
}

// GetByID is the public detail view; unapproved workshops stay invisible.
func (h *WorkshopsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "workshop id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	w, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			RespondNotFound(ctx, "Workshop not found")
			return
		}
		RespondInternal(ctx, "Could not fetch workshop")
		return
	}

	if w.Status != approval.StatusActive {
		RespondNotFound(ctx, "Workshop not found")
		return
	}

	ctx.JSON(http.StatusOK, w)
}

// List is the public browse screen. Responses are cached briefly because
// this is by far the hottest read and tolerates a few seconds of staleness.
func (h *WorkshopsHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)

	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	offset := parseIntDefault(ctx.Query("offset"), 0)

	if offset < 0 {
		RespondBadRequest(ctx, "offset must not be negative", nil)
		return
	}

	filter := workshop.ListFilter{Limit: limit, Offset: offset}

	if v := ctx.Query("communityId"); v != "" {
		if !utils.IsUUID(v) {
			RespondBadRequest(ctx, "communityId must be a valid UUID", nil)
			return
		}
		filter.CommunityID = &v
	}

	if v := ctx.Query("shopId"); v != "" {
		if !utils.IsUUID(v) {
			RespondBadRequest(ctx, "shopId must be a valid UUID", nil)
			return
		}
		filter.ShopID = &v
	}

	if v := ctx.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			RespondBadRequest(ctx, "from must be an RFC3339 timestamp", nil)
			return
		}
		filter.From = &t
	}

	if v := ctx.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			RespondBadRequest(ctx, "to must be an RFC3339 timestamp", nil)
			return
		}
		filter.To = &t
	}

	key := utils.BuildWorkshopsListCacheKey(h.listVersion(ctx.Request.Context()), limit, offset, filter.CommunityID, filter.ShopID, filter.From, filter.To)

	if h.cache != nil {
		if b, ok := h.cache.Get(ctx.Request.Context(), key); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.ListActive(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list workshops")
		return
	}

	resp := gin.H{
		"items":  items,
		"count":  len(items),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}

	if h.cache != nil {
		if b, err := json.Marshal(resp); err == nil {
			h.cache.Set(ctx.Request.Context(), key, b)
		}
	}

	ctx.JSON(http.StatusOK, resp)
}

// listVersion resolves the current listing-cache generation, minting one
// when none exists (first request, or right after an invalidation).
func (h *WorkshopsHandler) listVersion(ctx context.Context) string {
	if h.cache == nil {
		return "1"
	}

	if b, ok := h.cache.Get(ctx, utils.WorkshopsListVersionKey); ok && len(b) > 0 {
		return string(b)
	}

	ver := strconv.FormatInt(time.Now().UnixNano(), 36)
	h.cache.Set(ctx, utils.WorkshopsListVersionKey, []byte(ver))

	return ver
}

func (h *WorkshopsHandler) Approve(ctx *gin.Context) {
	h.moderate(ctx, approval.StatusActive)
}

func (h *WorkshopsHandler) Reject(ctx *gin.Context) {
	h.moderate(ctx, approval.StatusRejected)
}

func (h *WorkshopsHandler) moderate(ctx *gin.Context, next approval.Status) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "workshop id must be a valid UUID", nil)
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

	w, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			RespondNotFound(ctx, "Workshop not found")
			return
		}
		RespondInternal(ctx, "Could not moderate workshop")
		return
	}

	if !actor.IsAdminFor(w.CommunityID) {
		RespondForbidden(ctx, "You may only moderate workshops in your community")
		return
	}

	if next == approval.StatusRejected {
		err = h.repo.Reject(cctx, id, reason)
	} else {
		err = h.repo.Approve(cctx, id)
	}

	if err != nil {
		switch {
		case errors.Is(err, workshop.ErrNotFound):
			RespondNotFound(ctx, "Workshop not found")
		case errors.Is(err, approval.ErrInvalidTransition):
			RespondConflict(ctx, "invalid_transition", "Workshop is not pending review")
		case errors.Is(err, approval.ErrMissingReason):
			RespondBadRequest(ctx, "A rejection reason is required", nil)
		default:
			RespondInternal(ctx, "Could not moderate workshop")
		}
		return
	}

	// the cached listing predates this transition; drop the generation so
	// the next browse request rebuilds from the database
	if h.cache != nil {
		h.cache.Delete(cctx, utils.WorkshopsListVersionKey)
	}

	// notify the shop owner
	ownerID := ""

	if s, sErr := h.shops.GetByID(cctx, w.ShopID); sErr == nil {
		ownerID = s.OwnerID
	}

	enqueueApprovalNotice(cctx, h.jobs, "workshop", w.ID, ownerID, string(next), reason)

	ctx.JSON(http.StatusOK, gin.H{
		"workshopId": id,
		"status":     string(next),
	})
}
