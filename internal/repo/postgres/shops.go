package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/shop"
)

type ShopsRepo struct {
	pool *pgxpool.Pool
}

func NewShopsRepo(pool *pgxpool.Pool) *ShopsRepo {
	return &ShopsRepo{pool: pool}
}

const shopColumns = `id, community_id, owner_id, name, description, status, reject_reason, created_at, updated_at`

func scanShop(row pgx.Row) (shop.Shop, error) {
	var s shop.Shop
	var status string

	err := row.Scan(&s.ID, &s.CommunityID, &s.OwnerID, &s.Name, &s.Description, &status, &s.RejectReason, &s.CreatedAt, &s.UpdatedAt)

	s.Status = approval.Status(status)
	return s, err
}

func (r *ShopsRepo) Create(ctx context.Context, req shop.CreateShopRequest) (shop.Shop, error) {
	s := shop.NewFromCreateRequest(req)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO shops (`+shopColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.CommunityID, s.OwnerID, s.Name, s.Description, string(s.Status), s.RejectReason, s.CreatedAt, s.UpdatedAt,
	)

	if err != nil {
		return shop.Shop{}, err
	}

	return s, nil
}

func (r *ShopsRepo) GetByID(ctx context.Context, id string) (shop.Shop, error) {
	s, err := scanShop(r.pool.QueryRow(ctx,
		`SELECT `+shopColumns+` FROM shops WHERE id = $1`, id,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.Shop{}, shop.ErrNotFound
		}
		return shop.Shop{}, err
	}

	return s, nil
}

func (r *ShopsRepo) ListByCommunity(ctx context.Context, communityID string, onlyActive bool) ([]shop.Shop, error) {
	q := `SELECT ` + shopColumns + ` FROM shops WHERE community_id = $1`

	if onlyActive {
		q += ` AND status = 'ACTIVE'`
	}

	q += ` ORDER BY name ASC, id ASC`

	rows, err := r.pool.Query(ctx, q, communityID)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]shop.Shop, 0)

	for rows.Next() {
		s, err := scanShop(rows)

		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ShopsRepo) Approve(ctx context.Context, id string) error {
	return transitionStatus(ctx, r.pool, "shops", id, approval.StatusActive, nil, shop.ErrNotFound)
}

func (r *ShopsRepo) Reject(ctx context.Context, id, reason string) error {
	if reason == "" {
		return approval.ErrMissingReason
	}

	return transitionStatus(ctx, r.pool, "shops", id, approval.StatusRejected, &reason, shop.ErrNotFound)
}
