package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dispatch/internal/adapters/in/apierr"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ClientOptions tunes one connection.
type ClientOptions struct {
	// SendBuffer is the number of outbound frames queued before new ones are dropped.
	SendBuffer int
	// InboundBuffer is the number of decoded frames waiting for dispatch before reading pauses.
	InboundBuffer int
	// MaxMessageBytes caps a single inbound frame.
	MaxMessageBytes int64
	// PongWait is how long the connection may stay silent before it is considered dead.
	PongWait time.Duration
	// WriteWait bounds a single write.
	WriteWait time.Duration
}

// DefaultClientOptions returns the options used when a field is left zero.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		SendBuffer:      256,
		InboundBuffer:   64,
		MaxMessageBytes: 64 << 10,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
	}
}

func (o ClientOptions) withDefaults() ClientOptions {
	d := DefaultClientOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.InboundBuffer <= 0 {
		o.InboundBuffer = d.InboundBuffer
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = d.MaxMessageBytes
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	return o
}

// Client is one authenticated WebSocket connection.
//
// Three goroutines serve it: readLoop decodes frames onto inbound, dispatchLoop routes
// them one at a time, writeLoop drains send. send is never closed; writeLoop stops on done.
type Client struct {
	id        string
	principal kernel.Principal
	conn      *websocket.Conn
	opts      ClientOptions

	send    chan []byte
	inbound chan Inbound
	done    chan struct{}
	once    sync.Once

	roomsMu sync.Mutex
	rooms   map[kernel.UUID]struct{}

	// onActivity is called on every frame and pong received.
	onActivity func()

	logger  zerolog.Logger
	metrics *metrics.GatewayMetrics
}

func newClient(
	id string,
	principal kernel.Principal,
	conn *websocket.Conn,
	opts ClientOptions,
	logger zerolog.Logger,
	gatewayMetrics *metrics.GatewayMetrics,
) *Client {
	opts = opts.withDefaults()
	return &Client{
		id:        id,
		principal: principal,
		conn:      conn,
		opts:      opts,
		send:      make(chan []byte, opts.SendBuffer),
		inbound:   make(chan Inbound, opts.InboundBuffer),
		done:      make(chan struct{}),
		rooms:     make(map[kernel.UUID]struct{}),
		logger: logger.With().
			Str("connection", id).
			Str("role", string(principal.Role)).
			Str("principal", principal.ID.String()).
			Logger(),
		metrics: gatewayMetrics,
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Principal returns the authenticated caller.
func (c *Client) Principal() kernel.Principal {
	return c.principal
}

// enqueue queues an encoded frame without blocking. It reports false when the frame was
// dropped because the buffer is full or the connection is closing.
func (c *Client) enqueue(frame []byte, event string) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.metrics.Dropped(event)
		c.logger.Warn().Str("event", event).Msg("send buffer full, message dropped")
		return false
	}
}

// reply encodes and queues a frame for this connection only.
func (c *Client) reply(event string, data any) {
	frame, err := json.Marshal(Outbound{Event: event, Data: data})
	if err != nil {
		c.logger.Error().Err(err).Str("event", event).Msg("encode reply")
		return
	}
	c.enqueue(frame, event)
}

// ack answers an inbound frame that carried an ackId.
func (c *Client) ack(ackID json.RawMessage, err error, result any) {
	if len(ackID) == 0 {
		return
	}
	c.enqueue(encodeAck(ackID, err, apierr.Code(err), result), EventAck)
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) addRoom(orderID kernel.UUID) {
	c.roomsMu.Lock()
	c.rooms[orderID] = struct{}{}
	c.roomsMu.Unlock()
}

func (c *Client) removeRoom(orderID kernel.UUID) {
	c.roomsMu.Lock()
	delete(c.rooms, orderID)
	c.roomsMu.Unlock()
}

func (c *Client) roomIDs() []kernel.UUID {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()

	ids := make([]kernel.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}

// readLoop runs until the peer goes away. It closes inbound on return so dispatchLoop
// finishes the frames already read and exits.
func (c *Client) readLoop() {
	defer close(c.inbound)

	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.active()
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("connection closed unexpectedly")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		c.active()

		var msg Inbound
		if err = json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.metrics.Event("malformed", apierr.CodeValidation)
			c.reply("error", apierr.Response{Code: apierr.CodeValidation, Message: "malformed frame"})
			continue
		}

		select {
		case c.inbound <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) active() {
	if c.onActivity != nil {
		c.onActivity()
	}
}

// dispatchLoop routes inbound frames in arrival order.
func (c *Client) dispatchLoop(ctx context.Context, router *Router) {
	for msg := range c.inbound {
		router.Dispatch(ctx, c, msg)
	}
}

// writeLoop drains send and keeps the connection alive with pings.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is already queued, so acks of the last frames are not lost on close.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	err := c.conn.WriteMessage(messageType, data)
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
