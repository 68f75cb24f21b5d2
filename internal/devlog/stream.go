package devlog

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// streamBuffer is the per-subscriber queue. Slow clients past this depth
// lose entries rather than stalling the pipeline.
const streamBuffer = 64

// writeTimeout bounds a single frame write to one client.
const writeTimeout = 5 * time.Second

// Broadcaster is a Sink that relays entries to connected websocket clients.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Entry]struct{}
}

// Compile-time interface assertions.
var (
	_ Sink         = (*Broadcaster)(nil)
	_ http.Handler = (*Broadcaster)(nil)
)

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Entry]struct{})}
}

// Record forwards e to every subscriber, dropping it for clients whose
// buffer is full.
func (b *Broadcaster) Record(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Broadcaster) subscribe() chan Entry {
	ch := make(chan Entry, streamBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) unsubscribe(ch chan Entry) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// SubscriberCount reports how many clients are connected.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeHTTP upgrades the request to a websocket and streams entries as JSON
// until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Debug("devlog: websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case e := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, e)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
