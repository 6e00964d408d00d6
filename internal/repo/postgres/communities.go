package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/domain/community"
)

type CommunitiesRepo struct {
	pool *pgxpool.Pool
}

func NewCommunitiesRepo(pool *pgxpool.Pool) *CommunitiesRepo {
	return &CommunitiesRepo{pool: pool}
}

func (r *CommunitiesRepo) Create(ctx context.Context, req community.CreateCommunityRequest) (community.Community, error) {
	c := community.NewFromCreateRequest(req)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO communities (id, name, description, region, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.Name, c.Description, c.Region, c.CreatedAt, c.UpdatedAt,
	)

	if err != nil {
		return community.Community{}, err
	}

	return c, nil
}

func (r *CommunitiesRepo) List(ctx context.Context) ([]community.Community, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, region, created_at, updated_at
		 FROM communities
		 ORDER BY name ASC, id ASC`,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]community.Community, 0)

	for rows.Next() {
		var c community.Community

		err = rows.Scan(&c.ID, &c.Name, &c.Description, &c.Region, &c.CreatedAt, &c.UpdatedAt)

		if err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *CommunitiesRepo) GetByID(ctx context.Context, id string) (community.Community, error) {
	var c community.Community

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, region, created_at, updated_at
		 FROM communities WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Region, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return community.Community{}, community.ErrNotFound
		}
		return community.Community{}, err
	}

	return c, nil
}
