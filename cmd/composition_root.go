package cmd

import (
	"context"
	"net/http"

	httpin "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/in/payload"
	"dispatch/internal/adapters/in/realtime"
	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/redisfanout"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/jobs"
	"dispatch/internal/pkg/auth"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/pkg/logging"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/registry"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	cfg        Config
	logger     zerolog.Logger
	gormDB     *gorm.DB
	uowFactory postgres.GormUnitOfWorkFactory

	registry   *registry.Registry
	orderLocks *keylock.Locker
	dispatcher services.OrderDispatcher
	auth       *auth.Authenticator

	promRegistry      *prometheus.Registry
	gatewayMetrics    *metrics.GatewayMetrics
	assignmentMetrics *metrics.AssignmentMetrics
	cronMetrics       *metrics.CronJobMetrics

	hub      *realtime.Hub
	notifier *realtime.Notifier
	redis    *redis.Client
	relay    *redisfanout.Relay
}

// NewCompositionRoot wires the shared infrastructure. Broadcasts go through Redis when
// cfg.RedisURL is set and stay in-process otherwise.
func NewCompositionRoot(ctx context.Context, cfg Config, gormDB *gorm.DB, logger zerolog.Logger) (*CompositionRoot, error) {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &CompositionRoot{
		cfg:               cfg,
		logger:            logger,
		gormDB:            gormDB,
		uowFactory:        *postgres.NewGormUnitOfWorkFactory(gormDB),
		registry:          registry.New(cfg.Shards),
		orderLocks:        keylock.New(),
		dispatcher:        services.NewOrderDispatcher(services.RandomOTP, cfg.OTPTTL, cfg.DeliveryOffset),
		auth:              auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		promRegistry:      promRegistry,
		gatewayMetrics:    metrics.NewGatewayMetrics(promRegistry),
		assignmentMetrics: metrics.NewAssignmentMetrics(promRegistry),
		cronMetrics:       metrics.NewCronJobMetrics(promRegistry),
	}
	c.hub = realtime.NewHub(cfg.Shards, c.gatewayMetrics)

	var fanout realtime.Fanout = realtime.NewLocalFanout(c.hub)
	if cfg.RedisURL != "" {
		client, err := redisfanout.Connect(ctx, redisfanout.Options{URL: cfg.RedisURL})
		if err != nil {
			return nil, err
		}
		c.redis = client
		c.relay = redisfanout.NewRelay(client, cfg.RedisChannel, c.hub, logging.Component(logger, "redis_relay"))
		fanout = redisfanout.NewPublisher(client, cfg.RedisChannel, c.hub)
	}
	c.notifier = realtime.NewNotifier(fanout, logging.Component(logger, "notifier"))

	return c, nil
}

// Close releases the Redis connection.
func (c *CompositionRoot) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// Relay returns the Redis relay, nil when broadcasts are local.
func (c *CompositionRoot) Relay() *redisfanout.Relay {
	return c.relay
}

// Registry returns the partner presence index.
func (c *CompositionRoot) Registry() *registry.Registry {
	return c.registry
}

// Authenticator returns the bearer token verifier.
func (c *CompositionRoot) Authenticator() *auth.Authenticator {
	return c.auth
}

func (c *CompositionRoot) uow() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) partnerUoW() commands.PartnerUoWFactory {
	return FuncPartnerUoWFactory(func() commands.PartnerUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateAutoAssignCommandHandler() commands.AutoAssignCommandHandler {
	return commands.NewAutoAssignCommandHandler(
		c.uow(), c.registry, c.orderLocks, c.dispatcher, c.notifier,
		c.assignmentMetrics, c.cfg.AssignmentRadiusKm, nil)
}

func (c *CompositionRoot) CreateAcceptOrderCommandHandler() commands.AcceptOrderCommandHandler {
	return commands.NewAcceptOrderCommandHandler(
		c.uow(), c.registry, c.orderLocks, c.dispatcher, c.notifier, c.assignmentMetrics, nil)
}

func (c *CompositionRoot) CreateUpdateLocationCommandHandler() commands.UpdateLocationCommandHandler {
	return commands.NewUpdateLocationCommandHandler(c.uow(), c.registry, c.orderLocks, c.notifier, nil)
}

func (c *CompositionRoot) CreateUpdateStatusCommandHandler() commands.UpdateStatusCommandHandler {
	return commands.NewUpdateStatusCommandHandler(
		c.uow(), c.registry, c.orderLocks, c.dispatcher, c.notifier, nil)
}

func (c *CompositionRoot) CreateVerifyOTPCommandHandler() commands.VerifyOTPCommandHandler {
	return commands.NewVerifyOTPCommandHandler(
		c.uow(), c.registry, c.orderLocks, c.dispatcher, c.notifier, nil)
}

func (c *CompositionRoot) CreateReportIssueCommandHandler() commands.ReportIssueCommandHandler {
	return commands.NewReportIssueCommandHandler(c.uow(), c.orderLocks, c.notifier, nil)
}

func (c *CompositionRoot) CreateSubmitFeedbackCommandHandler() commands.SubmitFeedbackCommandHandler {
	return commands.NewSubmitFeedbackCommandHandler(c.uow(), c.registry, c.orderLocks, c.notifier, nil)
}

func (c *CompositionRoot) CreateToggleAvailabilityCommandHandler() commands.ToggleAvailabilityCommandHandler {
	return commands.NewToggleAvailabilityCommandHandler(c.partnerUoW(), c.registry, c.notifier, nil)
}

func (c *CompositionRoot) CreatePartnerPresenceCommandHandler() commands.PartnerPresenceCommandHandler {
	return commands.NewPartnerPresenceCommandHandler(c.uow(), c.registry, c.notifier, nil)
}

func (c *CompositionRoot) CreateGetTrackingSessionQueryHandler() queries.GetTrackingSessionQueryHandler {
	return queries.NewGetTrackingSessionQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetNearbyPartnersQueryHandler() queries.GetNearbyPartnersQueryHandler {
	return queries.NewGetNearbyPartnersQueryHandler(c.registry)
}

func (c *CompositionRoot) CreateAuthorizeOrderRoomQueryHandler() queries.AuthorizeOrderRoomQueryHandler {
	return queries.NewAuthorizeOrderRoomQueryHandler(c.gormDB)
}

// CreateGateway builds the websocket endpoint and its event router.
func (c *CompositionRoot) CreateGateway() *realtime.Gateway {
	logger := logging.Component(c.logger, "gateway")
	router := realtime.NewRouter(realtime.Handlers{
		Location:     c.CreateUpdateLocationCommandHandler(),
		Status:       c.CreateUpdateStatusCommandHandler(),
		Availability: c.CreateToggleAvailabilityCommandHandler(),
		Issue:        c.CreateReportIssueCommandHandler(),
		Feedback:     c.CreateSubmitFeedbackCommandHandler(),
		Session:      c.CreateGetTrackingSessionQueryHandler(),
		Rooms:        c.CreateAuthorizeOrderRoomQueryHandler(),
	}, c.hub, payload.NewValidator(), logger, c.gatewayMetrics)

	return realtime.NewGateway(
		c.auth,
		c.hub,
		router,
		c.CreatePartnerPresenceCommandHandler(),
		realtime.GatewayOptions{
			Client: realtime.ClientOptions{
				SendBuffer: c.cfg.SendBuffer,
				PongWait:   c.cfg.PongWait,
			},
			Activity: c.registry,
		},
		logger,
		c.gatewayMetrics,
	)
}

// CreateEcho builds the HTTP server with REST, /ws and /metrics mounted.
func (c *CompositionRoot) CreateEcho(ws http.Handler) *echo.Echo {
	server := httpin.NewServer(httpin.Handlers{
		AutoAssign:     c.CreateAutoAssignCommandHandler(),
		AcceptOrder:    c.CreateAcceptOrderCommandHandler(),
		VerifyOTP:      c.CreateVerifyOTPCommandHandler(),
		Tracking:       c.CreateGetTrackingSessionQueryHandler(),
		NearbyPartners: c.CreateGetNearbyPartnersQueryHandler(),
	}, c.auth, func(ctx context.Context) error {
		return postgres.Ping(ctx, c.gormDB)
	})

	metricsHandler := promhttp.HandlerFor(c.promRegistry, promhttp.HandlerOpts{Registry: c.promRegistry})
	return httpin.NewEcho(server, ws, metricsHandler)
}

// CreateJobManager schedules the background jobs.
func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	sweep := jobs.NewPresenceSweepJob(
		c.registry,
		c.CreatePartnerPresenceCommandHandler(),
		c.cfg.PresenceTimeout,
		c.cfg.PresenceSweepSchedule,
		c.cronMetrics,
		c.logger,
	)
	return jobs.NewJobManager(sweep)
}

// ResetPresence marks every persisted partner offline. Connections never survive a
// restart, so the flags left by the previous process are stale.
func (c *CompositionRoot) ResetPresence(ctx context.Context) (int64, error) {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer func() { _ = uow.Rollback(ctx) }()

	n, err := uow.PartnerRepository().MarkAllOffline(ctx)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

type FuncPartnerUoWFactory func() commands.PartnerUoW

func (f FuncPartnerUoWFactory) Create() commands.PartnerUoW {
	return f()
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
