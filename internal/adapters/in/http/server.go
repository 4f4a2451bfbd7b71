// Package http exposes the REST surface and mounts the realtime gateway and the metrics
// endpoint on one echo instance.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"dispatch/internal/adapters/in/apierr"
	"dispatch/internal/adapters/in/payload"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const principalKey = "principal"

type (
	AutoAssignHandler interface {
		Handle(ctx context.Context, command commands.AutoAssignCommand) (tracking.Session, error)
	}
	AcceptOrderHandler interface {
		Handle(ctx context.Context, command commands.AcceptOrderCommand) (tracking.Session, error)
	}
	VerifyOTPHandler interface {
		Handle(ctx context.Context, command commands.VerifyOTPCommand) (tracking.Session, error)
	}
	TrackingSessionHandler interface {
		Handle(ctx context.Context, query queries.GetTrackingSessionQuery) (tracking.Snapshot, error)
	}
	NearbyPartnersHandler interface {
		Handle(ctx context.Context, query queries.GetNearbyPartnersQuery) ([]queries.NearbyPartner, error)
	}
	Authenticator interface {
		Authenticate(r *http.Request) (kernel.Principal, error)
	}
)

// Handlers are the use cases served over REST.
type Handlers struct {
	AutoAssign     AutoAssignHandler
	AcceptOrder    AcceptOrderHandler
	VerifyOTP      VerifyOTPHandler
	Tracking       TrackingSessionHandler
	NearbyPartners NearbyPartnersHandler
}

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	handlers Handlers
	auth     Authenticator
	health   func(ctx context.Context) error
}

// NewServer creates a new HTTP server with the required command and query handlers.
// health backs GET /health; nil reports healthy unconditionally.
func NewServer(handlers Handlers, auth Authenticator, health func(ctx context.Context) error) *Server {
	return &Server{handlers: handlers, auth: auth, health: health}
}

// Mount registers every route on e. ws and metrics are mounted as-is when non-nil.
func (s *Server) Mount(e *echo.Echo, ws http.Handler, metrics http.Handler) {
	e.Validator = payload.NewValidator()
	e.HTTPErrorHandler = errorHandler

	e.GET("/health", s.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	if ws != nil {
		e.GET("/ws", echo.WrapHandler(ws))
	}

	api := e.Group("/api/v1", s.authenticate)
	api.POST("/orders/:orderId/assign", s.AssignOrder, requireRole(kernel.RoleAdmin))
	api.POST("/orders/:orderId/accept", s.AcceptOrder, requireRole(kernel.RolePartner))
	api.POST("/orders/:orderId/verify-otp", s.VerifyOTP, requireRole(kernel.RoleCustomer))
	api.GET("/orders/:orderId/tracking", s.GetTracking)
	api.GET("/partners/nearby", s.GetNearbyPartners, requireRole(kernel.RoleAdmin))
}

// NewEcho returns an echo instance with the standard middleware and s mounted.
func NewEcho(s *Server, ws http.Handler, metrics http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	s.Mount(e, ws, metrics)
	return e
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	if s.health != nil {
		if err := s.health(ctx.Request().Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// AssignOrder handles POST /api/v1/orders/:orderId/assign - runs automatic assignment.
func (s *Server) AssignOrder(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return err
	}
	command, err := commands.NewAutoAssignCommand(orderID)
	if err != nil {
		return err
	}

	session, err := s.handlers.AutoAssign.Handle(ctx.Request().Context(), command)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session.Snapshot().WithoutOTP())
}

// AcceptOrder handles POST /api/v1/orders/:orderId/accept - the calling partner takes the order.
func (s *Server) AcceptOrder(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return err
	}
	command, err := commands.NewAcceptOrderCommand(orderID, principalFrom(ctx).ID)
	if err != nil {
		return err
	}

	session, err := s.handlers.AcceptOrder.Handle(ctx.Request().Context(), command)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session.Snapshot().WithoutOTP())
}

type verifyOTPRequest struct {
	OTP string `json:"otp" validate:"required"`
}

type verifyOTPResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Status  tracking.Status `json:"status,omitempty"`
}

// VerifyOTP handles POST /api/v1/orders/:orderId/verify-otp. The body always carries
// success and, on failure, the error code.
func (s *Server) VerifyOTP(ctx echo.Context) error {
	session, err := s.verifyOTP(ctx)
	if err != nil {
		return ctx.JSON(apierr.Status(err), verifyOTPResponse{Error: apierr.Code(err)})
	}
	return ctx.JSON(http.StatusOK, verifyOTPResponse{Success: true, Status: session.Status()})
}

func (s *Server) verifyOTP(ctx echo.Context) (tracking.Session, error) {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return tracking.Session{}, err
	}

	var body verifyOTPRequest
	if err = bindAndValidate(ctx, &body); err != nil {
		return tracking.Session{}, err
	}

	customerID := principalFrom(ctx).ID
	command, err := commands.NewVerifyOTPCommand(orderID, &customerID, body.OTP)
	if err != nil {
		return tracking.Session{}, err
	}
	return s.handlers.VerifyOTP.Handle(ctx.Request().Context(), command)
}

// GetTracking handles GET /api/v1/orders/:orderId/tracking.
func (s *Server) GetTracking(ctx echo.Context) error {
	orderID, err := orderIDParam(ctx)
	if err != nil {
		return err
	}
	query, err := queries.NewGetTrackingSessionQuery(orderID, principalFrom(ctx))
	if err != nil {
		return err
	}

	snapshot, err := s.handlers.Tracking.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snapshot)
}

// GetNearbyPartners handles GET /api/v1/partners/nearby?lat=&lng=&radiusKm=.
func (s *Server) GetNearbyPartners(ctx echo.Context) error {
	lat, latErr := floatParam(ctx, "lat")
	lng, lngErr := floatParam(ctx, "lng")
	if latErr != nil {
		return latErr
	}
	if lngErr != nil {
		return lngErr
	}
	radiusKm := 10.0
	if ctx.QueryParam("radiusKm") != "" {
		r, err := floatParam(ctx, "radiusKm")
		if err != nil {
			return err
		}
		radiusKm = r
	}

	query, err := queries.NewGetNearbyPartnersQuery(lat, lng, radiusKm)
	if err != nil {
		return err
	}
	partners, err := s.handlers.NearbyPartners.Handle(ctx.Request().Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, partners)
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		principal, err := s.auth.Authenticate(ctx.Request())
		if err != nil {
			return err
		}
		ctx.Set(principalKey, principal)
		return next(ctx)
	}
}

func requireRole(roles ...kernel.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !slices.Contains(roles, principalFrom(ctx).Role) {
				return apierr.ErrForbidden
			}
			return next(ctx)
		}
	}
}

func principalFrom(ctx echo.Context) kernel.Principal {
	principal, _ := ctx.Get(principalKey).(kernel.Principal)
	return principal
}

func orderIDParam(ctx echo.Context) (kernel.UUID, error) {
	id, err := kernel.UUIDFromString(ctx.Param("orderId"))
	if err != nil {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause("orderId", err)
	}
	return id, nil
}

func floatParam(ctx echo.Context, name string) (float64, error) {
	value, err := strconv.ParseFloat(ctx.QueryParam(name), 64)
	if err != nil {
		return 0, errs.NewValueIsInvalidErrorWithCause(name, err)
	}
	return value, nil
}

func bindAndValidate(ctx echo.Context, dest any) error {
	if err := ctx.Bind(dest); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("body", err)
	}
	return ctx.Validate(dest)
}

// errorHandler renders engine errors as {code, message} and leaves echo's own errors
// (unknown route, method not allowed) with their status.
func errorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = ctx.JSON(httpErr.Code, apierr.Response{
			Code:    http.StatusText(httpErr.Code),
			Message: fmt.Sprint(httpErr.Message),
		})
		return
	}

	_ = ctx.JSON(apierr.Status(err), apierr.From(err))
}
