package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/realtime"
	"github.com/gin-gonic/gin"
)

const availabilityEvent = "availability"

type AvailabilityChannel interface {
	JoinRoom(ctx context.Context, q realtime.AvailabilityQuery) error
	RequestUpdate(ctx context.Context, q realtime.AvailabilityQuery) error
	Subscribe(fn realtime.Handler) (unsubscribe func())
}

type SnapshotStore interface {
	LatestSnapshot(ctx context.Context, room string) (*domain.FieldAvailability, error)
}

type AvailabilityHandler struct {
	channel   AvailabilityChannel
	snapshots SnapshotStore
}

func NewAvailabilityHandler(channel AvailabilityChannel, snapshots SnapshotStore) *AvailabilityHandler {
	return &AvailabilityHandler{channel: channel, snapshots: snapshots}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability/stream", h.stream)
	router.GET("/availability/snapshot", h.snapshot)
	router.POST("/availability/refresh", h.refresh)
}

func availabilityQuery(c *gin.Context) (realtime.AvailabilityQuery, bool) {
	q := realtime.AvailabilityQuery{Date: c.Query("date")}
	if raw := c.Query("branchId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid branchId")
			return q, false
		}
		q.BranchID = id
	}
	return q, true
}

// stream relays availability pushes for one room as server-sent events until
// the client goes away.
func (h *AvailabilityHandler) stream(c *gin.Context) {
	q, ok := availabilityQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// one slot: a slow client only ever gets the newest snapshot
	updates := make(chan domain.FieldAvailability, 1)
	unsubscribe := h.channel.Subscribe(func(s domain.FieldAvailability) {
		if q.Date != "" && s.Date != "" && s.Date != q.Date {
			return
		}
		select {
		case updates <- s:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := h.channel.JoinRoom(ctx, q); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			c.SSEvent(availabilityEvent, s)
			c.Writer.Flush()
		}
	}
}

func (h *AvailabilityHandler) snapshot(c *gin.Context) {
	room := realtime.RoomID(c.Query("date"))
	s, err := h.snapshots.LatestSnapshot(c.Request.Context(), room)
	if err != nil {
		respondError(c, err)
		return
	}
	if s == nil {
		respond(c, http.StatusNotFound, gin.H{"error": "no snapshot for " + room})
		return
	}
	respond(c, http.StatusOK, s)
}

func (h *AvailabilityHandler) refresh(c *gin.Context) {
	q, ok := availabilityQuery(c)
	if !ok {
		return
	}
	if err := h.channel.RequestUpdate(c.Request.Context(), q); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, gin.H{"room": realtime.RoomID(q.Date)})
}
