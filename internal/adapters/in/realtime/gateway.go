package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"dispatch/internal/adapters/in/apierr"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Authenticator resolves the caller of an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (kernel.Principal, error)
}

// PresenceHandler records partner connects and disconnects.
type PresenceHandler interface {
	Handle(ctx context.Context, command commands.PartnerPresenceCommand) (ports.Presence, error)
}

// ActivityTracker refreshes a connected partner's last-seen time.
type ActivityTracker interface {
	Touch(partnerID kernel.UUID, at time.Time) bool
}

// GatewayOptions configures the gateway.
type GatewayOptions struct {
	Client ClientOptions
	// Activity, when set, is touched on every frame and pong of a partner connection so
	// an idle but connected partner is not swept offline.
	Activity ActivityTracker
	// CheckOrigin overrides the same-origin check of the upgrader. Nil accepts any origin.
	CheckOrigin func(r *http.Request) bool
}

// Gateway is the http.Handler behind GET /ws.
//
// A connection is authenticated before the upgrade; a failure is a 401 and no frame is
// ever read. Partner connects and disconnects are serialized per partner so the registry
// always reflects whether the partner still has an open connection.
type Gateway struct {
	auth     Authenticator
	hub      *Hub
	router   *Router
	presence PresenceHandler
	locks    *keylock.Locker
	upgrader websocket.Upgrader
	opts     GatewayOptions
	logger   zerolog.Logger
	metrics  *metrics.GatewayMetrics

	mu      sync.Mutex
	clients map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewGateway creates the gateway.
func NewGateway(
	auth Authenticator,
	hub *Hub,
	router *Router,
	presence PresenceHandler,
	opts GatewayOptions,
	logger zerolog.Logger,
	gatewayMetrics *metrics.GatewayMetrics,
) *Gateway {
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Gateway{
		auth:     auth,
		hub:      hub,
		router:   router,
		presence: presence,
		locks:    keylock.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		opts:    opts,
		logger:  logger,
		metrics: gatewayMetrics,
		clients: make(map[*Client]struct{}),
	}
}

// ServeHTTP authenticates, upgrades and serves one connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := g.auth.Authenticate(r)
	if err != nil {
		g.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket auth rejected")
		writeJSONError(w, http.StatusUnauthorized, apierr.Response{Code: apierr.CodeAuth, Message: err.Error()})
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(uuid.NewString(), principal, conn, g.opts.Client, g.logger, g.metrics)
	if principal.Role == kernel.RolePartner && g.opts.Activity != nil {
		c.onActivity = func() {
			g.opts.Activity.Touch(principal.ID, time.Now())
		}
	}
	if !g.track(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer g.untrack(c)

	g.serve(context.WithoutCancel(r.Context()), c)
}

func (g *Gateway) serve(parent context.Context, c *Client) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		c.writeLoop()
		close(writerDone)
	}()
	defer func() {
		c.close()
		<-writerDone
		_ = c.conn.Close()
	}()

	if err := g.connect(ctx, c); err != nil {
		c.logger.Warn().Err(err).Msg("connection refused")
		c.reply(EventError, apierr.From(err))
		return
	}
	c.logger.Info().Msg("connected")

	dispatched := make(chan struct{})
	go func() {
		c.dispatchLoop(ctx, g.router)
		close(dispatched)
	}()

	c.readLoop()
	<-dispatched

	g.disconnect(ctx, c)
	c.logger.Info().Msg("disconnected")
}

func (g *Gateway) connect(ctx context.Context, c *Client) error {
	if c.principal.Role != kernel.RolePartner {
		g.hub.Register(c)
		return nil
	}

	unlock, err := g.locks.Lock(ctx, c.principal.ID.String())
	if err != nil {
		return err
	}
	defer unlock()

	g.hub.Register(c)
	command, err := commands.NewPartnerPresenceCommand(c.principal.ID, c.id, true)
	if err == nil {
		_, err = g.presence.Handle(ctx, command)
	}
	if err != nil {
		g.hub.Unregister(c)
		return err
	}
	return nil
}

func (g *Gateway) disconnect(ctx context.Context, c *Client) {
	if c.principal.Role != kernel.RolePartner {
		g.hub.Unregister(c)
		return
	}

	unlock, err := g.locks.Lock(ctx, c.principal.ID.String())
	if err != nil {
		g.hub.Unregister(c)
		return
	}
	defer unlock()

	if last := g.hub.Unregister(c); !last {
		return
	}
	command, err := commands.NewPartnerPresenceCommand(c.principal.ID, "", false)
	if err == nil {
		_, err = g.presence.Handle(ctx, command)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("mark partner offline")
	}
}

func (g *Gateway) track(c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closing {
		return false
	}
	g.clients[c] = struct{}{}
	g.wg.Add(1)
	return true
}

func (g *Gateway) untrack(c *Client) {
	g.mu.Lock()
	delete(g.clients, c)
	g.mu.Unlock()
	g.wg.Done()
}

// Connections returns the number of open connections.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// Shutdown refuses new connections, asks every open one to close and waits for them to
// finish. Connections still open when ctx is done are closed forcibly.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	clients := make([]*Client, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, c := range clients {
			_ = c.conn.Close()
		}
		<-done
		return ctx.Err()
	}
}

func writeJSONError(w http.ResponseWriter, status int, body apierr.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
