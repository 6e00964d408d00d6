package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
	"github.com/nomadworks/tourhub/internal/observability"
)

type WorkshopsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewWorkshopsRepo(pool *pgxpool.Pool, prom *observability.Prom) *WorkshopsRepo {
	return &WorkshopsRepo{pool: pool, prom: prom}
}

func (r *WorkshopsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const workshopColumns = `id, shop_id, community_id, title, description, price_cents, seat_limit, seats_booked, start_at, status, reject_reason, created_at, updated_at`

func scanWorkshop(row pgx.Row) (workshop.Workshop, error) {
	var w workshop.Workshop
	var status string

	err := row.Scan(
		&w.ID, &w.ShopID, &w.CommunityID, &w.Title, &w.Description,
		&w.PriceCents, &w.SeatLimit, &w.SeatsBooked, &w.StartAt,
		&status, &w.RejectReason, &w.CreatedAt, &w.UpdatedAt,
	)

	w.Status = approval.Status(status)
	return w, err
}

func (r *WorkshopsRepo) Create(ctx context.Context, req workshop.CreateWorkshopRequest) (workshop.Workshop, error) {
	w := workshop.NewFromCreateRequest(req)

	err := r.observe("workshops.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO workshops (`+workshopColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			w.ID, w.ShopID, w.CommunityID, w.Title, w.Description,
			w.PriceCents, w.SeatLimit, w.SeatsBooked, w.StartAt,
			string(w.Status), w.RejectReason, w.CreatedAt, w.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return workshop.Workshop{}, err
	}

	return w, nil
}

func (r *WorkshopsRepo) GetByID(ctx context.Context, id string) (workshop.Workshop, error) {
	var w workshop.Workshop

	err := r.observe("workshops.get_by_id", func() error {
		var err error
		w, err = scanWorkshop(r.pool.QueryRow(ctx,
			`SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workshop.Workshop{}, workshop.ErrNotFound
		}
		return workshop.Workshop{}, err
	}

	return w, nil
}

// ListActive returns publicly visible workshops. Filters mirror the public
// browse screen: community, shop, date window.
func (r *WorkshopsRepo) ListActive(ctx context.Context, filter workshop.ListFilter) ([]workshop.Workshop, int, error) {
	baseQuery := `SELECT ` + workshopColumns + `, COUNT(*) OVER() AS total
	FROM workshops
	`

	conds := []string{"status = 'ACTIVE'"}
	var args []interface{}

	argsPosition := 1

	if filter.CommunityID != nil {
		conds = append(conds, fmt.Sprintf("community_id = $%d", argsPosition))
		args = append(args, *filter.CommunityID)
		argsPosition++
	}

	if filter.ShopID != nil {
		conds = append(conds, fmt.Sprintf("shop_id = $%d", argsPosition))
		args = append(args, *filter.ShopID)
		argsPosition++
	}

	if filter.From != nil {
		conds = append(conds, fmt.Sprintf("start_at >= $%d", argsPosition))
		args = append(args, *filter.From)
		argsPosition++
	}

	if filter.To != nil {
		conds = append(conds, fmt.Sprintf("start_at <= $%d", argsPosition))
		args = append(args, *filter.To)
		argsPosition++
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY start_at ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var rows pgx.Rows
	err := r.observe("workshops.list_active", func() error {
		var err error
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	output := make([]workshop.Workshop, 0, filter.Limit)
	total := 0

	for rows.Next() {
		var w workshop.Workshop
		var status string
		var t int

		err = rows.Scan(
			&w.ID, &w.ShopID, &w.CommunityID, &w.Title, &w.Description,
			&w.PriceCents, &w.SeatLimit, &w.SeatsBooked, &w.StartAt,
			&status, &w.RejectReason, &w.CreatedAt, &w.UpdatedAt, &t,
		)

		if err != nil {
			return nil, 0, err
		}

		w.Status = approval.Status(status)
		total = t
		output = append(output, w)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (r *WorkshopsRepo) Update(ctx context.Context, id string, req workshop.UpdateWorkshopRequest) (workshop.Workshop, error) {
	var w workshop.Workshop

	// seat_limit may never shrink below seats_booked or the ledger
	// invariant breaks for existing bookings
	err := r.observe("workshops.update", func() error {
		var err error
		w, err = scanWorkshop(r.pool.QueryRow(ctx,
			`UPDATE workshops
			 SET title = $2,
			     description = $3,
			     price_cents = $4,
			     seat_limit = $5,
			     start_at = $6,
			     updated_at = NOW()
			 WHERE id = $1 AND $5 >= seats_booked
			 RETURNING `+workshopColumns,
			id, req.Title, req.Description, req.PriceCents, req.SeatLimit, req.StartAt,
		))
		return err
	})

	if err == nil {
		return w, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return workshop.Workshop{}, err
	}

	var dummy string
	probeErr := r.pool.QueryRow(ctx, `SELECT id FROM workshops WHERE id = $1`, id).Scan(&dummy)

	if errors.Is(probeErr, pgx.ErrNoRows) {
		return workshop.Workshop{}, workshop.ErrNotFound
	}

	if probeErr != nil {
		return workshop.Workshop{}, probeErr
	}

	return workshop.Workshop{}, workshop.ErrSeatLimitBelowBooked
}

// ReserveTx is the capacity ledger write: one conditional UPDATE that
// checks and increments in the same statement, so two concurrent
// enrollments can never both pass the check. Returns the post-increment
// seats_booked.
func (r *WorkshopsRepo) ReserveTx(ctx context.Context, tx pgx.Tx, workshopID string, participants int) (int, error) {
	if participants < 1 {
		return 0, workshop.ErrInvalidParticipants
	}

	var seatsBooked int

	err := r.observe("workshops.reserve", func() error {
		return tx.QueryRow(ctx,
			`UPDATE workshops
			 SET seats_booked = seats_booked + $2,
			     updated_at = NOW()
			 WHERE id = $1
			   AND status = 'ACTIVE'
			   AND seats_booked + $2 <= seat_limit
			 RETURNING seats_booked`,
			workshopID, participants,
		).Scan(&seatsBooked)
	})

	if err == nil {
		return seatsBooked, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// guard failed: tell WorkshopNotFound / not enrollable / full apart
	var status string
	probeErr := tx.QueryRow(ctx, `SELECT status FROM workshops WHERE id = $1`, workshopID).Scan(&status)

	if errors.Is(probeErr, pgx.ErrNoRows) {
		return 0, workshop.ErrNotFound
	}

	if probeErr != nil {
		return 0, probeErr
	}

	if approval.Status(status) != approval.StatusActive {
		return 0, workshop.ErrNotEnrollable
	}

	return 0, workshop.ErrCapacityExceeded
}

// ReleaseTx returns seats to the pool when an enrollment is cancelled,
// with the mirror-image guard so seats_booked never goes negative.
func (r *WorkshopsRepo) ReleaseTx(ctx context.Context, tx pgx.Tx, workshopID string, participants int) (int, error) {
	if participants < 1 {
		return 0, workshop.ErrInvalidParticipants
	}

	var seatsBooked int

	err := r.observe("workshops.release", func() error {
		return tx.QueryRow(ctx,
			`UPDATE workshops
			 SET seats_booked = seats_booked - $2,
			     updated_at = NOW()
			 WHERE id = $1
			   AND seats_booked - $2 >= 0
			 RETURNING seats_booked`,
			workshopID, participants,
		).Scan(&seatsBooked)
	})

	if err == nil {
		return seatsBooked, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// guard failed: a missing workshop and a ledger underflow are different bugs
	var exists bool
	probeErr := tx.QueryRow(ctx, `SELECT TRUE FROM workshops WHERE id = $1`, workshopID).Scan(&exists)

	if errors.Is(probeErr, pgx.ErrNoRows) {
		return 0, workshop.ErrNotFound
	}

	if probeErr != nil {
		return 0, probeErr
	}

	return 0, workshop.ErrReleaseExceedsBooked
}

func (r *WorkshopsRepo) Approve(ctx context.Context, id string) error {
	return transitionStatus(ctx, r.pool, "workshops", id, approval.StatusActive, nil, workshop.ErrNotFound)
}

func (r *WorkshopsRepo) Reject(ctx context.Context, id, reason string) error {
	if reason == "" {
		return approval.ErrMissingReason
	}

	return transitionStatus(ctx, r.pool, "workshops", id, approval.StatusRejected, &reason, workshop.ErrNotFound)
}
