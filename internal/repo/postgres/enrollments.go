package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/domain/approval"
	"github.com/nomadworks/tourhub/internal/domain/enrollment"
	"github.com/nomadworks/tourhub/internal/domain/workshop"
	"github.com/nomadworks/tourhub/internal/observability"
	"github.com/nomadworks/tourhub/internal/utils"
)

// ErrIdempotentReplay signals that an Idempotency-Key was already used; the
// caller should fetch and return the original enrollment instead.
var ErrIdempotentReplay = errors.New("idempotency key already used")

type EnrollmentsRepo struct {
	pool      *pgxpool.Pool
	workshops *WorkshopsRepo
	prom      *observability.Prom
}

func NewEnrollmentsRepo(pool *pgxpool.Pool, workshops *WorkshopsRepo, prom *observability.Prom) *EnrollmentsRepo {
	return &EnrollmentsRepo{
		pool:      pool,
		workshops: workshops,
		prom:      prom,
	}
}

func (repo *EnrollmentsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *EnrollmentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return repo.pool.BeginTx(ctx, pgx.TxOptions{})
}

const enrollmentColumns = `id, workshop_id, user_id, participants, total_price_cents, status, payment_status, ticket_code, workshop_title, workshop_date, idempotency_key, enrolled_at, updated_at`

func scanEnrollment(row pgx.Row) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	var status, paymentStatus string

	err := row.Scan(
		&e.ID, &e.WorkshopID, &e.UserID, &e.Participants, &e.TotalPriceCents,
		&status, &paymentStatus, &e.TicketCode, &e.WorkshopTitle, &e.WorkshopDate,
		&e.IdempotencyKey, &e.EnrolledAt, &e.UpdatedAt,
	)

	e.Status = enrollment.Status(status)
	e.PaymentStatus = enrollment.PaymentStatus(paymentStatus)
	return e, err
}

// CreateTx books seats and creates the enrollment inside the caller's
// transaction: snapshot the workshop, reserve seats with the conditional
// update, insert the enrollment row. Any failure leaves nothing behind once
// the caller rolls back.
func (repo *EnrollmentsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req enrollment.EnrollRequest) (enr enrollment.Enrollment, err error) {
	if req.Participants < 1 {
		err = workshop.ErrInvalidParticipants
		return
	}

	// 1) snapshot the workshop for denormalized ticket fields
	var w workshop.Workshop
	var status string

	err = repo.observe("enrollments.create_tx.workshop_snapshot", func() error {
		return tx.QueryRow(ctx,
			`SELECT id, title, price_cents, start_at, status
			 FROM workshops
			 WHERE id = $1`,
			req.WorkshopID,
		).Scan(&w.ID, &w.Title, &w.PriceCents, &w.StartAt, &status)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = workshop.ErrNotFound
		}
		return
	}

	w.Status = approval.Status(status)

	if w.Status != approval.StatusActive {
		err = workshop.ErrNotEnrollable
		return
	}

	// 2) atomic check-and-increment on the seat ledger
	_, err = repo.workshops.ReserveTx(ctx, tx, req.WorkshopID, req.Participants)

	if err != nil {
		return
	}

	// 3) insert the booking
	enr = enrollment.New(w, req)

	err = repo.observe("enrollments.create_tx.insert", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO enrollments (`+enrollmentColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			enr.ID, enr.WorkshopID, enr.UserID, enr.Participants, enr.TotalPriceCents,
			string(enr.Status), string(enr.PaymentStatus), enr.TicketCode,
			enr.WorkshopTitle, enr.WorkshopDate, enr.IdempotencyKey, enr.EnrolledAt, enr.UpdatedAt,
		)
		return e
	})

	if err != nil {
		// the key is unique per (user_id, idempotency_key): one user retrying
		// collides with their own booking, never with someone else's
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "enrollments_user_idem_key_uniq" {
			err = ErrIdempotentReplay
			return
		}
		return
	}

	if repo.prom != nil {
		repo.prom.SeatsReserved.WithLabelValues("confirmed").Add(float64(req.Participants))
	}

	return
}

// Create wraps CreateTx in its own transaction for callers that do not need
// to enqueue anything else atomically.
func (repo *EnrollmentsRepo) Create(ctx context.Context, req enrollment.EnrollRequest) (enr enrollment.Enrollment, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	enr, err = repo.CreateTx(ctx, tx, req)

	if err != nil {
		return
	}

	err = tx.Commit(ctx)

	return
}

// CancelTx flips a CONFIRMED enrollment to CANCELLED and releases its seats
// in the same transaction.
func (repo *EnrollmentsRepo) CancelTx(ctx context.Context, tx pgx.Tx, enrollmentID string) (enr enrollment.Enrollment, err error) {
	err = repo.observe("enrollments.cancel_tx.lock", func() error {
		var scanErr error
		enr, scanErr = scanEnrollment(tx.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`,
			enrollmentID,
		))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = enrollment.ErrNotFound
		}
		return
	}

	if enr.Status == enrollment.StatusCancelled {
		err = enrollment.ErrAlreadyCancelled
		return
	}

	err = repo.observe("enrollments.cancel_tx.update", func() error {
		_, e := tx.Exec(ctx,
			`UPDATE enrollments
			 SET status = $2, updated_at = NOW()
			 WHERE id = $1`,
			enrollmentID, string(enrollment.StatusCancelled),
		)
		return e
	})

	if err != nil {
		return
	}

	_, err = repo.workshops.ReleaseTx(ctx, tx, enr.WorkshopID, enr.Participants)

	if err != nil {
		return
	}

	if repo.prom != nil {
		repo.prom.SeatsReserved.WithLabelValues("released").Add(float64(enr.Participants))
	}

	enr.Status = enrollment.StatusCancelled
	return
}

func (repo *EnrollmentsRepo) GetByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment

	err := repo.observe("enrollments.get_by_id", func() error {
		var scanErr error
		e, scanErr = scanEnrollment(repo.pool.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id,
		))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, err
	}

	return e, nil
}

// GetByIdempotencyKey is scoped to one user: a replayed key only ever
// resolves to the caller's own enrollment.
func (repo *EnrollmentsRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment

	err := repo.observe("enrollments.get_by_idempotency_key", func() error {
		var scanErr error
		e, scanErr = scanEnrollment(repo.pool.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id = $1 AND idempotency_key = $2`,
			userID, key,
		))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, err
	}

	return e, nil
}

func (repo *EnrollmentsRepo) ListByUser(ctx context.Context, userID string) ([]enrollment.Enrollment, error) {
	var rows pgx.Rows

	err := repo.observe("enrollments.list_by_user", func() error {
		var qErr error
		rows, qErr = repo.pool.Query(ctx,
			`SELECT `+enrollmentColumns+`
			 FROM enrollments
			 WHERE user_id = $1
			 ORDER BY enrolled_at DESC, id DESC`,
			userID,
		)
		return qErr
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]enrollment.Enrollment, 0)

	for rows.Next() {
		e, scanErr := scanEnrollment(rows)

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

// ListByWorkshopCursor is the admin roster view: keyset pagination on
// (enrolled_at, id).
func (repo *EnrollmentsRepo) ListByWorkshopCursor(
	ctx context.Context,
	workshopID string,
	limit int,
	afterEnrolledAt time.Time,
	afterID string,
) (items []enrollment.Enrollment, nextCursor *string, hasMore bool, err error) {
	op := "enrollments.list_by_workshop_cursor"

	q := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE workshop_id = $1
		  AND (enrolled_at, id) > ($2, $3)
		ORDER BY enrolled_at ASC, id ASC
		LIMIT $4
	`
	limitPlusOne := limit + 1

	var rows pgx.Rows
	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, workshopID, afterEnrolledAt, afterID, limitPlusOne)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]enrollment.Enrollment, 0, limit)

	for rows.Next() {
		e, scanErr := scanEnrollment(rows)
		if scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeCursor(last.EnrolledAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}
