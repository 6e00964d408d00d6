package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/shop"
	"github.com/nomadworks/tourhub/internal/http/middlewares"
	"github.com/nomadworks/tourhub/internal/utils"
)

type ShopsStore interface {
	Create(ctx context.Context, req shop.CreateShopRequest) (shop.Shop, error)
	GetByID(ctx context.Context, id string) (shop.Shop, error)
	ListByCommunity(ctx context.Context, communityID string, onlyActive bool) ([]shop.Shop, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id, reason string) error
}

type ShopsHandler struct {
	repo  ShopsStore
	users ActorLoader
	jobs  JobsEnqueuer
}

func NewShopsHandler(repo ShopsStore, users ActorLoader, jobs JobsEnqueuer) *ShopsHandler {
	return &ShopsHandler{repo: repo, users: users, jobs: jobs}
}

func (h *ShopsHandler) Create(ctx *gin.Context) {
	var req shop.CreateShopRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	// owner comes from the token, never the body
	req.OwnerID = userID

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create shop")
		return
	}

	ctx.JSON(http.StatusCreated, s)
}

func (h *ShopsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "shop id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, shop.ErrNotFound) {
			RespondNotFound(ctx, "Shop not found")
			return
		}
		RespondInternal(ctx, "Could not fetch shop")
		return
	}

	ctx.JSON(http.StatusOK, s)
}

// ListByCommunity is the public storefront listing: ACTIVE shops only.
func (h *ShopsHandler) ListByCommunity(ctx *gin.Context) {
	communityID := ctx.Param("id")

	if !utils.IsUUID(communityID) {
		RespondBadRequest(ctx, "community id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByCommunity(cctx, communityID, true)

	if err != nil {
		RespondInternal(ctx, "Could not list shops")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"communityId": communityID,
		"items":       items,
		"count":       len(items),
	})
}

// Approve moves a PENDING shop to ACTIVE. Community admins may only
// moderate their own community.
func (h *ShopsHandler) Approve(ctx *gin.Context) {
	h.moderate(ctx, approval.StatusActive)
}

func (h *ShopsHandler) Reject(ctx *gin.Context) {
	h.moderate(ctx, approval.StatusRejected)
}

func (h *ShopsHandler) moderate(ctx *gin.Context, next approval.Status) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "shop id must be a valid UUID", nil)
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

	s, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, shop.ErrNotFound) {
			RespondNotFound(ctx, "Shop not found")
			return
		}
		RespondInternal(ctx, "Could not moderate shop")
		return
	}

	if !actor.IsAdminFor(s.CommunityID) {
		RespondForbidden(ctx, "You may only moderate shops in your community")
		return
	}

	if next == approval.StatusRejected {
		err = h.repo.Reject(cctx, id, reason)
	} else {
		err = h.repo.Approve(cctx, id)
	}

	if err != nil {
		switch {
		case errors.Is(err, shop.ErrNotFound):
			RespondNotFound(ctx, "Shop not found")
		case errors.Is(err, approval.ErrInvalidTransition):
			RespondConflict(ctx, "invalid_transition", "Shop is not pending review")
		case errors.Is(err, approval.ErrMissingReason):
			RespondBadRequest(ctx, "A rejection reason is required", nil)
		default:
			RespondInternal(ctx, "Could not moderate shop")
		}
		return
	}

	enqueueApprovalNotice(cctx, h.jobs, "shop", s.ID, s.OwnerID, string(next), reason)

	ctx.JSON(http.StatusOK, gin.H{
		"shopId": id,
		"status": string(next),
	})
}
