package repository

import (
	"context"

	"github.com/Domenick1991/fieldbooking/internal/kafka"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activitySchema = `CREATE TABLE IF NOT EXISTS booking_activity (
	id           BIGSERIAL PRIMARY KEY,
	event_type   TEXT        NOT NULL,
	booking_id   BIGINT      NOT NULL,
	field_id     BIGINT,
	user_id      BIGINT,
	booking_date TEXT,
	start_time   TEXT,
	end_time     TEXT,
	status       TEXT,
	payment_id   BIGINT,
	occurred_at  TIMESTAMPTZ NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (event_type, booking_id, occurred_at)
)`

type ActivityRepository interface {
	EnsureSchema(ctx context.Context) error
	// Record stores the event once; redelivered events are ignored.
	Record(ctx context.Context, event kafka.BookingEvent) error
}

type PGActivityRepository struct {
	db *pgxpool.Pool
}

func NewActivityRepository(db *pgxpool.Pool) ActivityRepository {
	return &PGActivityRepository{db: db}
}

func (r *PGActivityRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, activitySchema)
	return err
}

func (r *PGActivityRepository) Record(ctx context.Context, event kafka.BookingEvent) error {
	_, err := r.db.Exec(ctx, `INSERT INTO booking_activity
		(event_type, booking_id, field_id, user_id, booking_date, start_time, end_time, status, payment_id, occurred_at)
		VALUES ($1, $2, NULLIF($3::bigint, 0), NULLIF($4::bigint, 0), NULLIF($5::text, ''), NULLIF($6::text, ''),
			NULLIF($7::text, ''), NULLIF($8::text, ''), NULLIF($9::bigint, 0), $10)
		ON CONFLICT (event_type, booking_id, occurred_at) DO NOTHING`,
		event.Type, event.BookingID, event.FieldID, event.UserID, event.BookingDate,
		event.StartTime, event.EndTime, event.Status, event.PaymentID, event.OccurredAt)
	return err
}
