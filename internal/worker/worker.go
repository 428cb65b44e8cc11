// Package worker journals booking events and keeps availability snapshots
// fresh after every change.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/fieldbooking/internal/kafka"
	"github.com/Domenick1991/fieldbooking/internal/realtime"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

const defaultSchedule = "@every 1m"

type activityRecorder interface {
	Record(ctx context.Context, event kafka.BookingEvent) error
}

type availabilityRequester interface {
	RequestUpdate(ctx context.Context, q realtime.AvailabilityQuery) error
}

type Worker struct {
	activity activityRecorder
	channel  availabilityRequester
	schedule string
	loc      *time.Location
	log      zerolog.Logger
}

func New(activity activityRecorder, channel availabilityRequester, schedule string, loc *time.Location, log zerolog.Logger) *Worker {
	if schedule == "" {
		schedule = defaultSchedule
	}
	if loc == nil {
		loc = time.Local
	}
	return &Worker{
		activity: activity,
		channel:  channel,
		schedule: schedule,
		loc:      loc,
		log:      log.With().Str("component", "worker").Logger(),
	}
}

// HandleMessage never fails the consumer: undecodable and unrecordable
// events are logged and skipped.
func (w *Worker) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.DecodeBookingEvent(msg)
	if err != nil {
		w.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed event")
		return nil
	}

	if err := w.activity.Record(ctx, event); err != nil {
		w.log.Error().Err(err).Str("type", event.Type).Int64("booking_id", event.BookingID).Msg("record activity failed")
	}

	// payments never move a slot
	if event.Type == kafka.EventPaymentCreated || event.Type == kafka.EventPaymentPaid {
		return nil
	}
	// cancellations carry no date, so the default room is refreshed instead
	q := realtime.AvailabilityQuery{Date: event.BookingDate}
	if err := w.channel.RequestUpdate(ctx, q); err != nil {
		w.log.Warn().Err(err).Str("room", realtime.RoomID(q.Date)).Msg("availability refresh failed")
	}
	return nil
}

func (w *Worker) Refresh(ctx context.Context) {
	if err := w.channel.RequestUpdate(ctx, realtime.AvailabilityQuery{}); err != nil {
		w.log.Warn().Err(err).Msg("scheduled availability refresh failed")
	}
}

// Start runs the refresh schedule until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	scheduler := cron.New(cron.WithLocation(w.loc))
	if _, err := scheduler.AddFunc(w.schedule, func() { w.Refresh(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", w.schedule, err)
	}

	scheduler.Start()
	w.log.Info().Str("schedule", w.schedule).Msg("scheduler started")

	<-ctx.Done()
	<-scheduler.Stop().Done()
	w.log.Info().Msg("scheduler stopped")
	return nil
}
