// Package stream pushes committed position snapshots to websocket
// subscribers so the dashboard updates without polling the HTTP API.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"tradedesk/internal/trade"
)

type snapshotMessage struct {
	Type      string         `json:"type"`
	Positions []trade.Record `json:"positions"`
	SentAt    time.Time      `json:"sentAt"`
}

// Hub fans out snapshots to connected clients. Slow clients drop frames
// rather than backpressure the reconciler.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	latest  []byte
	dropped uint64
}

type subscriber struct {
	frames chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		subs:   map[*subscriber]struct{}{},
	}
}

// Publish is the reconciler's commit hook.
func (h *Hub) Publish(positions []trade.Record) {
	frame, err := json.Marshal(snapshotMessage{
		Type:      "positions",
		Positions: positions,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("encode snapshot frame", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.latest = frame
	for sub := range h.subs {
		select {
		case sub.frames <- frame:
		default:
			// Drop when subscriber is slow; the next frame supersedes anyway.
			atomic.AddUint64(&h.dropped, 1)
		}
	}
	h.mu.Unlock()
}

// Dropped returns the number of frames discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// Subscribers returns the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add() (*subscriber, []byte) {
	sub := &subscriber{frames: make(chan []byte, 8)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	latest := h.latest
	h.mu.Unlock()
	return sub, latest
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams frames until the client
// disconnects or the server shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	sub, latest := h.add()
	defer h.remove(sub)

	// The stream is write-only; CloseRead keeps processing control frames
	// and cancels the context as soon as the client goes away.
	ctx := conn.CloseRead(r.Context())
	if latest != nil {
		if err := h.write(ctx, conn, latest); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sub.frames:
			if err := h.write(ctx, conn, frame); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, frame)
}
