package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/http/middlewares"
	"github.com/nomadworks/tourhub/internal/security"
)

type UserProfileStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdatePasswordHash(ctx context.Context, id, newHash string) error
}

type SessionRevoker interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error
}

type UsersHandler struct {
	users    UserProfileStore
	sessions SessionRevoker
}

func NewUsersHandler(users UserProfileStore, sessions SessionRevoker) *UsersHandler {
	return &UsersHandler{users: users, sessions: sessions}
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// ChangePassword verifies the current password before replacing the hash,
// then revokes every refresh token so stolen sessions die with the old
// password.
func (h *UsersHandler) ChangePassword(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Current password is incorrect.")
		return
	}

	newHash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := h.users.UpdatePasswordHash(cctx, userID, newHash); err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	tx, err := h.sessions.BeginTx(cctx)

	if err == nil {
		defer func() { _ = tx.Rollback(cctx) }()

		if err := h.sessions.RevokeAllForUser(cctx, tx, userID); err == nil {
			_ = tx.Commit(cctx)
		}
	}

	ctx.Status(http.StatusNoContent)
}
