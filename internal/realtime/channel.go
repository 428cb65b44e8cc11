// Package realtime owns the push channel that carries field availability
// snapshots. One Channel is one logical websocket connection; rooms and
// handlers are multiplexed over it and survive reconnects.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	EventJoin               = "join"
	EventRequestUpdate      = "request_availability_update"
	EventAvailabilityUpdate = "fieldsAvailabilityUpdate"

	defaultRoom = "field_availability"
	writeWait   = 10 * time.Second

	defaultReconnectMin = 500 * time.Millisecond
	defaultReconnectMax = 30 * time.Second
)

// RoomID keys rooms by date; an empty date selects the default room.
func RoomID(date string) string {
	if date == "" {
		return defaultRoom
	}
	return defaultRoom + "_" + date
}

type AvailabilityQuery struct {
	BranchID int64  `json:"branchId,omitempty"`
	Date     string `json:"date,omitempty"`
}

type frame struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Config struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
	Logger *zerolog.Logger

	// ReconnectMin and ReconnectMax bound the redial backoff.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

type Handler func(domain.FieldAvailability)

type Channel struct {
	cfg Config
	log zerolog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	rooms    map[string]AvailabilityQuery
	handlers map[uint64]Handler
	nextID   uint64
	closed   bool

	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Open dials the push endpoint and starts reading. A dropped connection is
// redialled with backoff and every joined room is joined again; the channel
// lives until Close is called.
func Open(ctx context.Context, cfg Config) (*Channel, error) {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = defaultReconnectMin
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = defaultReconnectMax
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = cfg.ReconnectMin
	}

	conn, _, err := cfg.Dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime channel: %w", err)
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	c := &Channel{
		cfg:      cfg,
		log:      log,
		conn:     conn,
		rooms:    make(map[string]AvailabilityQuery),
		handlers: make(map[uint64]Handler),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run(conn)
	return c, nil
}

// Done is closed once the channel has been closed and its loop has stopped.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()
		close(c.closing)

		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			c.writeMu.Unlock()
			err = conn.Close()
		}
	})
	<-c.done
	return err
}

// JoinRoom joins the date room and then asks for the current snapshot, since
// joining alone does not make the server push one. The room is remembered, so
// a join made while reconnecting is sent once the connection is back.
func (c *Channel) JoinRoom(ctx context.Context, q AvailabilityQuery) error {
	c.mu.Lock()
	c.rooms[RoomID(q.Date)] = q
	c.mu.Unlock()

	err := c.join(ctx, q)
	if errors.Is(err, domain.ErrNotConnected) {
		return nil
	}
	return err
}

func (c *Channel) join(ctx context.Context, q AvailabilityQuery) error {
	room := RoomID(q.Date)
	data, err := json.Marshal(struct {
		BranchID int64 `json:"branchId,omitempty"`
	}{q.BranchID})
	if err != nil {
		return err
	}
	if err := c.send(ctx, frame{Event: EventJoin, Room: room, Data: data}); err != nil {
		return fmt.Errorf("join %s: %w", room, err)
	}
	return c.RequestUpdate(ctx, q)
}

func (c *Channel) RequestUpdate(ctx context.Context, q AvailabilityQuery) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := c.send(ctx, frame{Event: EventRequestUpdate, Data: data}); err != nil {
		return fmt.Errorf("request availability update: %w", err)
	}
	return nil
}

// Subscribe registers fn for availability pushes. The returned func removes
// only this handler and is safe to call more than once.
func (c *Channel) Subscribe(fn Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Channel) send(ctx context.Context, f frame) error {
	c.mu.Lock()
	closed, conn := c.closed, c.conn
	c.mu.Unlock()
	if closed {
		return domain.ErrChannelClosed
	}
	if conn == nil {
		return domain.ErrNotConnected
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Channel) run(conn *websocket.Conn) {
	defer close(c.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		err := c.readLoop(conn)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		closed := c.closed
		c.mu.Unlock()
		_ = conn.Close()
		if closed {
			return
		}
		c.log.Warn().Err(err).Msg("realtime channel dropped, reconnecting")

		if conn, err = c.redial(ctx); err != nil {
			return
		}
		c.rejoin(ctx)
	}
}

// redial retries with exponential backoff until it connects or the channel
// is closed.
func (c *Channel) redial(ctx context.Context) (*websocket.Conn, error) {
	backoff := c.cfg.ReconnectMin
	for {
		select {
		case <-ctx.Done():
			return nil, domain.ErrChannelClosed
		case <-time.After(backoff):
		}

		conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
		if err != nil {
			backoff = min(backoff*2, c.cfg.ReconnectMax)
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("realtime redial failed")
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return nil, domain.ErrChannelClosed
		}
		c.conn = conn
		c.mu.Unlock()
		c.log.Info().Msg("realtime channel reconnected")
		return conn, nil
	}
}

func (c *Channel) rejoin(ctx context.Context) {
	c.mu.Lock()
	rooms := make([]AvailabilityQuery, 0, len(c.rooms))
	for _, q := range c.rooms {
		rooms = append(rooms, q)
	}
	c.mu.Unlock()

	for _, q := range rooms {
		if err := c.join(ctx, q); err != nil {
			// the read loop sees the broken connection and redials again
			c.log.Warn().Err(err).Str("room", RoomID(q.Date)).Msg("realtime rejoin failed")
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.log.Warn().Err(err).Msg("malformed realtime frame")
			continue
		}
		if f.Event != EventAvailabilityUpdate {
			continue
		}

		var snapshot domain.FieldAvailability
		if err := json.Unmarshal(f.Data, &snapshot); err != nil {
			c.log.Warn().Err(err).Str("event", f.Event).Msg("malformed availability payload")
			continue
		}
		c.dispatch(snapshot)
	}
}

func (c *Channel) dispatch(snapshot domain.FieldAvailability) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(snapshot)
	}
}
