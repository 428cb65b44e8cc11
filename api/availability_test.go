package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu           sync.Mutex
	handler      realtime.Handler
	joined       []realtime.AvailabilityQuery
	requested    []realtime.AvailabilityQuery
	unsubscribed bool
	subscribed   chan struct{}
	joinErr      error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{subscribed: make(chan struct{}, 1)}
}

func (f *fakeChannel) JoinRoom(_ context.Context, q realtime.AvailabilityQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, q)
	if f.joinErr == nil {
		f.subscribed <- struct{}{}
	}
	return f.joinErr
}

func (f *fakeChannel) RequestUpdate(_ context.Context, q realtime.AvailabilityQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, q)
	return nil
}

func (f *fakeChannel) Subscribe(fn realtime.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
	}
}

func (f *fakeChannel) push(s domain.FieldAvailability) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(s)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) LatestSnapshot(ctx context.Context, room string) (*domain.FieldAvailability, error) {
	args := m.Called(ctx, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FieldAvailability), args.Error(1)
}

func TestAvailabilityHandler_stream(t *testing.T) {
	channel := newFakeChannel()
	handler := NewAvailabilityHandler(channel, &MockSnapshotStore{})

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/availability/stream?date=2024-05-01&branchId=3", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		handler.stream(c)
		close(done)
	}()

	select {
	case <-channel.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never joined")
	}

	channel.push(domain.FieldAvailability{Date: "2024-04-30", Fields: []domain.FieldAvailableRow{{ID: 9, Name: "Other day"}}})
	channel.push(domain.FieldAvailability{Date: "2024-05-01", Fields: []domain.FieldAvailableRow{{ID: 1, Name: "Court A"}}})

	// the relay goroutine writes asynchronously; give it a moment before hanging up
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after client went away")
	}

	body := w.Body.String()
	assert.Contains(t, body, "event:availability")
	assert.Contains(t, body, "Court A")
	assert.NotContains(t, body, "Other day")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	channel.mu.Lock()
	defer channel.mu.Unlock()
	assert.True(t, channel.unsubscribed)
	require.Len(t, channel.joined, 1)
	assert.Equal(t, realtime.AvailabilityQuery{BranchID: 3, Date: "2024-05-01"}, channel.joined[0])
}

func TestAvailabilityHandler_stream_JoinFailure(t *testing.T) {
	channel := newFakeChannel()
	channel.joinErr = domain.ErrChannelClosed
	router := gin.New()
	NewAvailabilityHandler(channel, &MockSnapshotStore{}).Register(router.Group("/api"))

	w := serve(router, http.MethodGet, "/api/availability/stream", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.True(t, channel.unsubscribed)
}

func TestAvailabilityHandler_snapshot(t *testing.T) {
	store := &MockSnapshotStore{}
	router := gin.New()
	NewAvailabilityHandler(newFakeChannel(), store).Register(router.Group("/api"))

	store.On("LatestSnapshot", mock.Anything, "field_availability_2024-05-01").
		Return(&domain.FieldAvailability{Date: "2024-05-01", Fields: []domain.FieldAvailableRow{{ID: 1, Name: "Court A", Status: domain.FieldStatusAvailable}}}, nil)
	store.On("LatestSnapshot", mock.Anything, "field_availability").Return(nil, nil)
	store.On("LatestSnapshot", mock.Anything, "field_availability_2024-05-02").Return(nil, errors.New("redis down"))

	w := serve(router, http.MethodGet, "/api/availability/snapshot?date=2024-05-01", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Court A")

	w = serve(router, http.MethodGet, "/api/availability/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodGet, "/api/availability/snapshot?date=2024-05-02", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAvailabilityHandler_refresh(t *testing.T) {
	channel := newFakeChannel()
	router := gin.New()
	NewAvailabilityHandler(channel, &MockSnapshotStore{}).Register(router.Group("/api"))

	w := serve(router, http.MethodPost, "/api/availability/refresh?date=2024-05-01", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"room":"field_availability_2024-05-01"}`, w.Body.String())

	w = serve(router, http.MethodPost, "/api/availability/refresh?branchId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	channel.mu.Lock()
	defer channel.mu.Unlock()
	assert.Equal(t, []realtime.AvailabilityQuery{{Date: "2024-05-01"}}, channel.requested)
}
