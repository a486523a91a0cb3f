package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pandaskiing/depositview/app/dashboard/types"
	"github.com/pandaskiing/depositview/pkg/feed"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is sent by websocket clients.
type ClientMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Feed   string `json:"feed"`   // feed name, or "*" for every feed
}

// ServerMessage is sent to websocket clients.
type ServerMessage struct {
	Type    string      `json:"type"` // "feed.updated", "subscribed", "unsubscribed", "info", "error"
	Payload interface{} `json:"payload"`
}

// feedSubscriptions tracks the feeds one client listens to.
type feedSubscriptions struct {
	mu    sync.RWMutex
	feeds map[string]bool
}

func newFeedSubscriptions() *feedSubscriptions {
	return &feedSubscriptions{feeds: make(map[string]bool)}
}

func (fs *feedSubscriptions) Subscribe(name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.feeds[name] = true
}

func (fs *feedSubscriptions) Unsubscribe(name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.feeds, name)
}

// IsSubscribed reports whether name is subscribed. "*" matches every feed.
func (fs *feedSubscriptions) IsSubscribed(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.feeds["*"] || fs.feeds[name]
}

func validFeed(name string) bool {
	return name == "*" || slices.Contains(feed.Names, name)
}

// HandleWebSocket streams feed refresh notifications.
//
// Client sends: {"action": "subscribe", "feed": "recentDeposits"}
// Client sends: {"action": "subscribe", "feed": "*"}
// Client sends: {"action": "unsubscribe", "feed": "recentDeposits"}
//
// Server sends:
// - {"type": "feed.updated", "payload": {"feed": "recentDeposits", "key": "recentDeposits:5", "updatedAt": 1700000000000}}
// - {"type": "subscribed", "payload": {"feed": "recentDeposits"}}
// - {"type": "unsubscribed", "payload": {"feed": "recentDeposits"}}
// - {"type": "error", "payload": {"message": "..."}}
//
// Clients refetch the matching HTTP endpoint on feed.updated.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		http.Error(w, "Live updates not available (Redis disabled)", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func(conn *websocket.Conn) {
		if err := conn.Close(); err != nil {
			c.App.Logger.Error("Failed to close WebSocket connection", zap.Error(err))
		}
	}(conn)

	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subs := newFeedSubscriptions()
	send := make(chan ServerMessage, 256)

	run := func(wg *sync.WaitGroup, name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					c.App.Logger.Error("Panic in WebSocket goroutine",
						zap.String("goroutine", name),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
						zap.String("remote_addr", r.RemoteAddr))
					cancel()
				}
			}()
			fn()
		}()
	}

	// Producers finish before send is closed; the writer drains it.
	var producers, writer sync.WaitGroup
	run(&producers, "redis subscriber", func() { c.subscribeToRedis(ctx, send, subs) })
	run(&producers, "ping ticker", func() { c.sendPings(ctx, conn) })
	run(&writer, "message writer", func() { c.writeMessages(conn, send) })

	// Blocks until the connection closes.
	c.readClientMessages(ctx, conn, cancel, subs, send)

	producers.Wait()
	close(send)
	writer.Wait()

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// subscribeToRedis forwards feed updates the client subscribed to. A lost
// subscription is retried with exponential backoff until ctx is done.
func (c *Controller) subscribeToRedis(ctx context.Context, send chan<- ServerMessage, subs *feedSubscriptions) {
	pattern := types.FeedChannel("*")

	const (
		initialBackoff = 1 * time.Second
		maxBackoff     = 30 * time.Second
		backoffFactor  = 2.0
		jitterFactor   = 0.1
	)

	backoff := initialBackoff
	attempt := 0

	for {
		if ctx.Err() != nil {
			return
		}
		attempt++

		err := c.attemptRedisSubscription(ctx, pattern, send, subs, attempt)
		if ctx.Err() != nil {
			c.App.Logger.Debug("Redis subscription cancelled")
			return
		}

		if err != nil {
			c.App.Logger.Warn("Redis subscription failed, will retry",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
		} else {
			c.App.Logger.Warn("Redis subscription channel closed, will retry",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
		}

		select {
		case send <- ServerMessage{
			Type: "error",
			Payload: map[string]interface{}{
				"message":     "live updates interrupted, reconnecting",
				"retryIn":     backoff.Seconds(),
				"attempt":     attempt,
				"recoverable": true,
			},
		}:
		case <-ctx.Done():
			return
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		backoff = calculateNextBackoff(backoff, maxBackoff, backoffFactor, jitterFactor)
	}
}

// attemptRedisSubscription runs one subscription until it fails or ctx is done.
// It returns nil when an established subscription's channel closed.
func (c *Controller) attemptRedisSubscription(
	ctx context.Context,
	pattern string,
	send chan<- ServerMessage,
	subs *feedSubscriptions,
	attempt int,
) error {
	pubsub := c.App.RedisClient.PSubscribe(ctx, pattern)
	defer func() {
		if err := pubsub.Close(); err != nil {
			c.App.Logger.Error("Error closing Redis subscription", zap.Error(err))
		}
	}()

	receiveCtx, receiveCancel := context.WithTimeout(ctx, 5*time.Second)
	defer receiveCancel()

	if _, err := pubsub.Receive(receiveCtx); err != nil {
		return fmt.Errorf("failed to confirm Redis subscription: %w", err)
	}

	c.App.Logger.Debug("Subscribed to Redis pattern",
		zap.String("pattern", pattern),
		zap.Int("attempt", attempt))

	if attempt > 1 {
		select {
		case send <- ServerMessage{Type: "info", Payload: map[string]interface{}{"message": "live updates restored", "attempt": attempt}}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return c.processRedisMessages(ctx, pubsub, send, subs)
}

func (c *Controller) processRedisMessages(
	ctx context.Context,
	pubsub *redis.PubSub,
	send chan<- ServerMessage,
	subs *feedSubscriptions,
) error {
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			name := extractFeedFromChannel(msg.Channel)
			if name == "" {
				c.App.Logger.Warn("Unexpected live update channel", zap.String("channel", msg.Channel))
				continue
			}
			if !subs.IsSubscribed(name) {
				continue
			}

			var payload types.FeedUpdated
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				c.App.Logger.Error("Failed to parse live update",
					zap.Error(err),
					zap.String("channel", msg.Channel))
				continue
			}

			select {
			case send <- ServerMessage{Type: types.FeedUpdatedEvent, Payload: payload}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// calculateNextBackoff grows current by factor, capped at max, with +/- jitterFactor jitter.
func calculateNextBackoff(current, max time.Duration, factor, jitterFactor float64) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		next = max
	}

	jitter := float64(next) * jitterFactor * (2*rand.Float64() - 1)
	withJitter := time.Duration(float64(next) + jitter)

	if withJitter < current {
		withJitter = current
	}
	if withJitter > max {
		withJitter = max
	}
	return withJitter
}

// extractFeedFromChannel returns the feed of "depositview:<feed>:feed.updated".
func extractFeedFromChannel(channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != types.ChannelPrefix || parts[2] != types.FeedUpdatedEvent {
		return ""
	}
	return parts[1]
}

// sendPings keeps the connection alive. Pong replies reset the read deadline.
func (c *Controller) sendPings(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

func (c *Controller) writeMessages(conn *websocket.Conn, send <-chan ServerMessage) {
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			c.App.Logger.Debug("Failed to write WebSocket message", zap.Error(err))
			// Keep draining so senders never block on a dead connection.
			for range send {
			}
			return
		}
	}
}

// readClientMessages handles subscribe/unsubscribe requests until the connection closes.
func (c *Controller) readClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, subs *feedSubscriptions, send chan<- ServerMessage) {
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
		c.App.Logger.Error("Failed to set read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	reply := func(msg ServerMessage) bool {
		select {
		case send <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.App.Logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			c.App.Logger.Error("Failed to reset read deadline", zap.Error(err))
			return
		}

		var out ServerMessage
		switch {
		case msg.Action != "subscribe" && msg.Action != "unsubscribe":
			out = ServerMessage{Type: "error", Payload: map[string]string{"message": "unknown action: " + msg.Action}}
		case msg.Feed == "":
			out = ServerMessage{Type: "error", Payload: map[string]string{"message": "feed is required"}}
		case !validFeed(msg.Feed):
			out = ServerMessage{Type: "error", Payload: map[string]string{"message": "unknown feed: " + msg.Feed}}
		case msg.Action == "subscribe":
			subs.Subscribe(msg.Feed)
			c.App.Logger.Debug("Client subscribed", zap.String("feed", msg.Feed))
			out = ServerMessage{Type: "subscribed", Payload: map[string]string{"feed": msg.Feed}}
		default:
			subs.Unsubscribe(msg.Feed)
			c.App.Logger.Debug("Client unsubscribed", zap.String("feed", msg.Feed))
			out = ServerMessage{Type: "unsubscribed", Payload: map[string]string{"feed": msg.Feed}}
		}
		if !reply(out) {
			return
		}
	}
}
