package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/config"
	"github.com/nomadworks/tourhub/internal/domain/user"
	"github.com/nomadworks/tourhub/internal/security"
)

// EnsurePlatformAdmin creates the bootstrap platform admin on first start.
func EnsurePlatformAdmin(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Firstname:    cfg.AdminName,
		Role:         user.RolePlatformAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, firstname, lastname, phone, role, community_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
		u.ID, u.Email, u.PasswordHash, u.Firstname, u.Lastname, u.Phone, u.Role, u.CommunityID, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
