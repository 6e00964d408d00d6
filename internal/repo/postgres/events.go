package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/event"
)

type EventsRepo struct {
	pool *pgxpool.Pool
}

func NewEventsRepo(pool *pgxpool.Pool) *EventsRepo {
	return &EventsRepo{pool: pool}
}

const eventColumns = `id, community_id, title, description, venue, start_at, status, phase, reject_reason, created_at, updated_at`

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	var status, phase string

	err := row.Scan(
		&e.ID, &e.CommunityID, &e.Title, &e.Description, &e.Venue,
		&e.StartAt, &status, &phase, &e.RejectReason, &e.CreatedAt, &e.UpdatedAt,
	)

	e.Status = approval.Status(status)
	e.Phase = event.Phase(phase)
	return e, err
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.CommunityID, e.Title, e.Description, e.Venue,
		e.StartAt, string(e.Status), string(e.Phase), e.RejectReason, e.CreatedAt, e.UpdatedAt,
	)

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// ListPublic returns ACTIVE+OPEN events, the only ones visible to tourists.
func (r *EventsRepo) ListPublic(ctx context.Context, communityID *string) ([]event.Event, error) {
	q := `SELECT ` + eventColumns + `
	 FROM events
	 WHERE status = 'ACTIVE' AND phase = 'OPEN'`

	var args []interface{}

	if communityID != nil {
		q += ` AND community_id = $1`
		args = append(args, *communityID)
	}

	q += ` ORDER BY start_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, q, args...)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]event.Event, 0)

	for rows.Next() {
		e, scanErr := scanEvent(rows)

		if scanErr != nil {
			return nil, scanErr
		}

		out = append(out, e)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *EventsRepo) Approve(ctx context.Context, id string) error {
	return transitionStatus(ctx, r.pool, "events", id, approval.StatusActive, nil, event.ErrNotFound)
}

func (r *EventsRepo) Reject(ctx context.Context, id, reason string) error {
	if reason == "" {
		return approval.ErrMissingReason
	}

	return transitionStatus(ctx, r.pool, "events", id, approval.StatusRejected, &reason, event.ErrNotFound)
}

// SetPhase moves the scheduling lifecycle with the same guarded-update
// shape as the approval gate.
func (r *EventsRepo) SetPhase(ctx context.Context, id string, next event.Phase) (event.Event, error) {
	if !next.IsValid() {
		return event.Event{}, event.ErrInvalidPhase
	}

	current, err := r.GetByID(ctx, id)

	if err != nil {
		return event.Event{}, err
	}

	if !current.Phase.CanTransitionTo(next) {
		return event.Event{}, event.ErrInvalidPhase
	}

	e, err := scanEvent(r.pool.QueryRow(ctx,
		`UPDATE events
		 SET phase = $2, updated_at = NOW()
		 WHERE id = $1 AND phase = $3
		 RETURNING `+eventColumns,
		id, string(next), string(current.Phase),
	))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// phase moved under us between read and write
			return event.Event{}, event.ErrInvalidPhase
		}
		return event.Event{}, err
	}

	return e, nil
}
