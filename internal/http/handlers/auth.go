package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nomadworks/tourhub/internal/auth"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/repo/postgres"
	"github.com/nomadworks/tourhub/internal/security"
)

const refreshCookie = "refresh_token"

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AuthHandler struct {
	users    UserStore
	jwt      *auth.Manager
	sessions *postgres.RefreshTokensRepo
	cfg      config.Config
}

func NewAuthHandler(users UserStore, jwtManager *auth.Manager, sessions *postgres.RefreshTokensRepo, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		jwt:      jwtManager,
		sessions: sessions,
		cfg:      cfg,
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Firstname string `json:"firstname" binding:"required,min=1,max=80"`
	Lastname  string `json:"lastname" binding:"omitempty,max=80"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	// self-service signup may only pick these two; admin roles are seeded
	Role string `json:"role" binding:"omitempty,oneof=TOURIST SHOP_OWNER"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	role := req.Role
	if role == "" {
		role = user.RoleTourist
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	now := time.Now().UTC()

	u, err := h.users.Create(cctx, user.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Firstname:    strings.TrimSpace(req.Firstname),
		Lastname:     strings.TrimSpace(req.Lastname),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.issueSession(ctx, cctx, u, http.StatusCreated)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// same response for unknown email and bad password
	u, err := h.users.GetByEmail(cctx, strings.TrimSpace(req.Email))
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	h.issueSession(ctx, cctx, u, http.StatusOK)
}

// issueSession mints the token pair, persists the refresh half and writes the
// access token plus the user to the response.
func (h *AuthHandler) issueSession(ctx *gin.Context, cctx context.Context, u user.User, status int) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	raw, jti, expiresAt, err := h.jwt.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	if err := h.persistSession(cctx, u.ID, jti, raw, expiresAt); err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.writeRefreshCookie(ctx, raw, int(time.Until(expiresAt).Seconds()))

	ctx.JSON(status, gin.H{
		"accessToken": accessToken,
		"user":        u,
	})
}

func (h *AuthHandler) persistSession(ctx context.Context, userID, jti, raw string, expiresAt time.Time) error {
	tx, err := h.sessions.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = h.sessions.Create(ctx, tx, postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    userID,
		TokenHash: h.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookie)
	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	accessToken, newRaw, newExpiresAt, err := h.rotateSession(cctx, raw, claims)

	switch {
	case errors.Is(err, errRefreshRejected):
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	case errors.Is(err, errRefreshExpired):
		RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		return
	case err != nil:
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	h.writeRefreshCookie(ctx, newRaw, int(time.Until(newExpiresAt).Seconds()))

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

var (
	errRefreshRejected = errors.New("refresh token rejected")
	errRefreshExpired  = errors.New("refresh token expired")
)

// rotateSession atomically replaces one stored refresh token with its
// successor. The row lock serializes concurrent refreshes of the same
// session; whoever loses the race finds the row already revoked.
func (h *AuthHandler) rotateSession(ctx context.Context, raw string, claims *auth.Claims) (accessToken, newRaw string, newExpiresAt time.Time, err error) {
	tx, err := h.sessions.BeginTx(ctx)
	if err != nil {
		return "", "", time.Time{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row, err := h.sessions.GetForUpdate(ctx, tx, claims.JTI)
	if err != nil || row.RevokedAt != nil {
		return "", "", time.Time{}, errRefreshRejected
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		return "", "", time.Time{}, errRefreshExpired
	}

	// the presented token must be the one this row was minted for
	if row.TokenHash != h.jwt.HashRefreshToken(raw) {
		return "", "", time.Time{}, errRefreshRejected
	}

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(row.UserID, claims.Email, claims.Role)
	if err != nil {
		return "", "", time.Time{}, err
	}

	if err := h.sessions.Revoke(ctx, tx, row.ID, &newJTI); err != nil {
		return "", "", time.Time{}, err
	}

	err = h.sessions.Create(ctx, tx, postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    row.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", "", time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", time.Time{}, err
	}

	accessToken, err = h.jwt.GenerateAccessToken(row.UserID, claims.Email, claims.Role)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return accessToken, newRaw, newExpiresAt, nil
}

// Logout always succeeds from the client's point of view: the cookie is
// cleared even when the token was already gone or the revoke failed.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	defer func() {
		h.writeRefreshCookie(ctx, "", -1)
		ctx.Status(http.StatusNoContent)
	}()

	raw, err := ctx.Cookie(refreshCookie)
	if err != nil || raw == "" {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.sessions.BeginTx(cctx)
	if err != nil {
		return
	}
	defer func() { _ = tx.Rollback(cctx) }()

	_ = h.sessions.Revoke(cctx, tx, claims.JTI, nil)
	_ = tx.Commit(cctx)
}

func (h *AuthHandler) writeRefreshCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		refreshCookie,
		value,
		maxAge,
		"/auth",
		"",
		h.cfg.Env == "prod", // Secure
		true,                // HttpOnly
	)
}
