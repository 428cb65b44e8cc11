package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/envelope"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/Domenick1991/fieldbooking/internal/kafka"
	"github.com/rs/zerolog"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type BookingUseCase interface {
	ListUserBookings(ctx context.Context, userID int64) []domain.Booking
	ListAllBookings(ctx context.Context) []domain.Booking
	ListBranchBookings(ctx context.Context, branchID int64) []domain.Booking
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*CancelResult, error)
	CheckAvailability(ctx context.Context, fieldID int64, date string) ([]domain.TimeSlot, error)
	CreatePayment(ctx context.Context, bookingID int64, method domain.PaymentMethod) (*domain.Payment, error)
	GetPaymentStatus(ctx context.Context, paymentID int64) (*domain.Payment, error)
	MarkPaid(ctx context.Context, paymentID int64) (*domain.Payment, error)
}

type API interface {
	Do(ctx context.Context, req httpclient.Request) ([]byte, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	api         API
	producer    Producer
	eventsTopic string
	loc         *time.Location
	log         zerolog.Logger
	now         func() time.Time
}

type CancelResult struct {
	Message string `json:"message"`
}

type BookingServiceOption func(*BookingService)

func WithEvents(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

// WithLocation sets the zone booking dates and times are interpreted in.
func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(log zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func NewBookingService(api API, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		api: api,
		loc: time.Local,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) []domain.Booking {
	if userID <= 0 {
		s.log.Error().Err(domain.ErrUserIDRequired).Msg("use ListAllBookings for the admin view")
		return []domain.Booking{}
	}
	return s.listBookings(ctx, fmt.Sprintf("/bookings/users/%d/bookings", userID))
}

func (s *BookingService) ListAllBookings(ctx context.Context) []domain.Booking {
	return s.listBookings(ctx, "/bookings/admin/bookings")
}

func (s *BookingService) ListBranchBookings(ctx context.Context, branchID int64) []domain.Booking {
	return s.listBookings(ctx, fmt.Sprintf("/bookings/branches/%d/bookings", branchID))
}

// listBookings never fails: pages render an empty state instead.
func (s *BookingService) listBookings(ctx context.Context, endpoint string) []domain.Booking {
	body, err := s.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: endpoint})
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("fetching bookings failed")
		return []domain.Booking{}
	}

	list, err := envelope.DecodeList[domain.Booking](body, "bookings")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("unexpected response shape")
		return []domain.Booking{}
	}
	return list.Items
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	endpoint := fmt.Sprintf("/bookings/%d/user", id)
	body, err := s.api.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: endpoint})
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}

	one, err := envelope.DecodeOne[domain.Booking](body, "booking")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("unexpected response shape")
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &one.Value, nil
}

type createBookingPayload struct {
	domain.BookingRequest
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
}

// CreateBooking validates the window, resolves it to absolute instants in the
// service location and submits it. A payment created alongside by the
// backend comes back attached to the booking.
func (s *BookingService) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	start, end, err := s.window(req)
	if err != nil {
		return nil, err
	}

	body, err := s.api.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/bookings",
		Body: createBookingPayload{
			BookingRequest: req,
			StartDateTime:  start,
			EndDateTime:    end,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	one, err := envelope.DecodeOne[domain.Booking](body, "booking")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/bookings").Msg("unexpected response shape")
		return nil, fmt.Errorf("create booking: %w", err)
	}

	created := &one.Value
	event := s.bookingEvent(kafka.EventBookingCreated, created)
	if created.Payment != nil {
		event.PaymentID = created.Payment.ID
	}
	s.publish(ctx, event)
	return created, nil
}

// window combines date and times of day into instants in s.loc.
func (s *BookingService) window(req domain.BookingRequest) (time.Time, time.Time, error) {
	if req.FieldID <= 0 {
		return time.Time{}, time.Time{}, domain.ErrInvalidField
	}
	if _, err := time.Parse(dateLayout, req.BookingDate); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, req.BookingDate)
	}
	start, err := time.ParseInLocation(dateLayout+" "+timeLayout, req.BookingDate+" "+req.StartTime, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", domain.ErrInvalidTime, req.StartTime)
	}
	end, err := time.ParseInLocation(dateLayout+" "+timeLayout, req.BookingDate+" "+req.EndTime, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", domain.ErrInvalidTime, req.EndTime)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidTimeRange
	}
	return start, end, nil
}

// CancelBooking asks the backend to cancel. The backend treats a repeated
// cancel as success, so the same message comes back both times.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*CancelResult, error) {
	body, err := s.api.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/bookings/%d/cancel", id),
	})
	if err != nil {
		s.log.Error().Err(err).Int64("booking_id", id).Msg("cancel booking failed")
		return nil, fmt.Errorf("cancel booking %d: %w", id, err)
	}

	var result CancelResult
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("cancel booking %d: %w", id, &envelope.ShapeError{Kind: "message", Err: err})
		}
	}

	s.publish(ctx, kafka.BookingEvent{
		Type:       kafka.EventBookingCancelled,
		BookingID:  id,
		Status:     string(domain.BookingStatusCancelled),
		OccurredAt: s.now(),
	})
	return &result, nil
}

func (s *BookingService) CheckAvailability(ctx context.Context, fieldID int64, date string) ([]domain.TimeSlot, error) {
	if fieldID <= 0 {
		return nil, domain.ErrInvalidField
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDate, date)
	}

	endpoint := fmt.Sprintf("/fields/%d/availability", fieldID)
	body, err := s.api.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   endpoint,
		Query:  url.Values{"date": {date}},
	})
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}

	var payload struct {
		AvailableSlots *[]domain.TimeSlot `json:"availableSlots"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AvailableSlots == nil {
		shapeErr := &envelope.ShapeError{Kind: "availability", Err: err}
		s.log.Error().Err(shapeErr).Str("endpoint", endpoint).Msg("unexpected response shape")
		return nil, fmt.Errorf("check availability: %w", shapeErr)
	}
	return *payload.AvailableSlots, nil
}

func (s *BookingService) CreatePayment(ctx context.Context, bookingID int64, method domain.PaymentMethod) (*domain.Payment, error) {
	if strings.TrimSpace(string(method)) == "" {
		return nil, domain.ErrInvalidPaymentMethod
	}

	payment, err := s.paymentCall(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/bookings/%d/payment", bookingID),
		Body:   map[string]domain.PaymentMethod{"paymentMethod": method},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.publish(ctx, kafka.BookingEvent{
		Type:       kafka.EventPaymentCreated,
		BookingID:  bookingID,
		PaymentID:  payment.ID,
		Status:     string(payment.Status),
		OccurredAt: s.now(),
	})
	return payment, nil
}

func (s *BookingService) GetPaymentStatus(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	payment, err := s.paymentCall(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/payments/%d", paymentID),
	})
	if err != nil {
		return nil, fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return payment, nil
}

// MarkPaid is restricted to staff roles; the backend enforces it.
func (s *BookingService) MarkPaid(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	payment, err := s.paymentCall(ctx, httpclient.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/payments/%d/mark-paid", paymentID),
	})
	if err != nil {
		return nil, fmt.Errorf("mark payment %d paid: %w", paymentID, err)
	}

	s.publish(ctx, kafka.BookingEvent{
		Type:       kafka.EventPaymentPaid,
		BookingID:  payment.BookingID,
		PaymentID:  payment.ID,
		Status:     string(payment.Status),
		OccurredAt: s.now(),
	})
	return payment, nil
}

func (s *BookingService) paymentCall(ctx context.Context, req httpclient.Request) (*domain.Payment, error) {
	body, err := s.api.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	one, err := envelope.DecodeOne[domain.Payment](body, "payment")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", req.Path).Msg("unexpected response shape")
		return nil, err
	}
	return &one.Value, nil
}

func (s *BookingService) bookingEvent(eventType string, b *domain.Booking) kafka.BookingEvent {
	return kafka.BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		FieldID:     b.FieldID,
		UserID:      b.UserID,
		BookingDate: b.BookingDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Status:      string(b.Status),
		OccurredAt:  s.now(),
	}
}

// publish never fails the operation that triggered it.
func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, event.Key(), event); err != nil {
		s.log.Warn().Err(err).Str("type", event.Type).Int64("booking_id", event.BookingID).Msg("failed to publish booking event")
	}
}

var _ BookingUseCase = (*BookingService)(nil)
