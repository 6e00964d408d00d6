package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/community"
	"github.com/nomadworks/tourhub/internal/utils"
)

type CommunitiesStore interface {
	Create(ctx context.Context, req community.CreateCommunityRequest) (community.Community, error)
	List(ctx context.Context) ([]community.Community, error)
	GetByID(ctx context.Context, id string) (community.Community, error)
}

type CommunitiesHandler struct {
	repo CommunitiesStore
}

func NewCommunitiesHandler(repo CommunitiesStore) *CommunitiesHandler {
	return &CommunitiesHandler{repo: repo}
}

func (h *CommunitiesHandler) Create(ctx *gin.Context) {
	var req community.CreateCommunityRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create community")
		return
	}

	ctx.JSON(http.StatusCreated, c)
}

func (h *CommunitiesHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list communities")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *CommunitiesHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "community id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, community.ErrNotFound) {
			RespondNotFound(ctx, "Community not found")
			return
		}
		RespondInternal(ctx, "Could not fetch community")
		return
	}

	ctx.JSON(http.StatusOK, c)
}
