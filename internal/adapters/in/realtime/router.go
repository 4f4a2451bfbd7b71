package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"dispatch/internal/adapters/in/apierr"
	"dispatch/internal/adapters/in/payload"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/metrics"

	"github.com/rs/zerolog"
)

// Inbound event names.
const (
	EventJoinOrderTracking     = "join_order_tracking"
	EventLeaveOrderTracking    = "leave_order_tracking"
	EventLocationUpdate        = "location_update"
	EventStatusUpdate          = "status_update"
	EventToggleAvailability    = "toggle_availability"
	EventReportIssue           = "report_issue"
	EventRequestDeliveryUpdate = "request_delivery_update"
	EventDeliveryFeedback      = "delivery_feedback"
)

// EventError is sent for a failed frame that carried no ackId.
const EventError = "error"

// ErrUnknownEvent is returned for an event name outside the routing table.
var ErrUnknownEvent = errs.NewValueIsInvalidError("event")

type (
	LocationHandler interface {
		Handle(ctx context.Context, command commands.UpdateLocationCommand) error
	}
	StatusHandler interface {
		Handle(ctx context.Context, command commands.UpdateStatusCommand) (tracking.Session, error)
	}
	AvailabilityHandler interface {
		Handle(ctx context.Context, command commands.ToggleAvailabilityCommand) error
	}
	IssueHandler interface {
		Handle(ctx context.Context, command commands.ReportIssueCommand) (tracking.Issue, error)
	}
	FeedbackHandler interface {
		Handle(ctx context.Context, command commands.SubmitFeedbackCommand) error
	}
	SessionReader interface {
		Handle(ctx context.Context, query queries.GetTrackingSessionQuery) (tracking.Snapshot, error)
	}
	RoomAuthorizer interface {
		Handle(ctx context.Context, query queries.AuthorizeOrderRoomQuery) error
	}
)

// Handlers are the use cases the router dispatches to.
type Handlers struct {
	Location     LocationHandler
	Status       StatusHandler
	Availability AvailabilityHandler
	Issue        IssueHandler
	Feedback     FeedbackHandler
	Session      SessionReader
	Rooms        RoomAuthorizer
}

type routeFunc func(ctx context.Context, c *Client, data json.RawMessage) (any, error)

type route struct {
	roles  []kernel.Role
	handle routeFunc
}

func (r route) allows(role kernel.Role) bool {
	return len(r.roles) == 0 || slices.Contains(r.roles, role)
}

// Router maps inbound events to use cases. Errors are returned to the sender and never
// close the connection.
type Router struct {
	handlers  Handlers
	hub       *Hub
	validator *payload.Validator
	routes    map[string]route
	logger    zerolog.Logger
	metrics   *metrics.GatewayMetrics
}

// NewRouter builds the routing table.
func NewRouter(
	handlers Handlers,
	hub *Hub,
	validator *payload.Validator,
	logger zerolog.Logger,
	gatewayMetrics *metrics.GatewayMetrics,
) *Router {
	r := &Router{
		handlers:  handlers,
		hub:       hub,
		validator: validator,
		logger:    logger,
		metrics:   gatewayMetrics,
	}

	partnerOnly := []kernel.Role{kernel.RolePartner}
	customerOnly := []kernel.Role{kernel.RoleCustomer}
	r.routes = map[string]route{
		EventJoinOrderTracking:     {handle: r.joinOrderTracking},
		EventLeaveOrderTracking:    {handle: r.leaveOrderTracking},
		EventLocationUpdate:        {roles: partnerOnly, handle: r.locationUpdate},
		EventStatusUpdate:          {roles: partnerOnly, handle: r.statusUpdate},
		EventToggleAvailability:    {roles: partnerOnly, handle: r.toggleAvailability},
		EventReportIssue:           {roles: partnerOnly, handle: r.reportIssue},
		EventRequestDeliveryUpdate: {roles: customerOnly, handle: r.requestDeliveryUpdate},
		EventDeliveryFeedback:      {roles: customerOnly, handle: r.deliveryFeedback},
	}
	return r
}

// Dispatch runs one inbound frame and answers the sender: an ack when the frame carried
// an ackId, an error event when it failed without one.
func (r *Router) Dispatch(ctx context.Context, c *Client, msg Inbound) {
	started := time.Now()

	result, err := r.route(ctx, c, msg)

	code := apierr.Code(err)
	if err == nil {
		code = "ok"
	}
	r.metrics.Event(msg.Event, code)

	event := r.logger.Debug()
	if apierr.Status(err) >= http.StatusInternalServerError {
		event = r.logger.Error()
	}
	event.
		Str("connection", c.ID()).
		Str("event", msg.Event).
		Str("result", code).
		Dur("took", time.Since(started)).
		Err(err).
		Msg("event handled")

	if len(msg.AckID) > 0 {
		c.ack(msg.AckID, err, result)
		return
	}
	if err != nil {
		c.reply(EventError, apierr.Response{Code: code, Message: apierr.From(err).Message})
	}
}

func (r *Router) route(ctx context.Context, c *Client, msg Inbound) (any, error) {
	rt, ok := r.routes[msg.Event]
	if !ok {
		return nil, ErrUnknownEvent
	}
	if !rt.allows(c.Principal().Role) {
		return nil, apierr.ErrForbidden
	}
	return rt.handle(ctx, c, msg.Data)
}

type orderRef struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

func (r *Router) decodeOrderRef(data json.RawMessage) (kernel.UUID, error) {
	var p orderRef
	if err := r.validator.Decode(data, &p); err != nil {
		return kernel.UUID{}, err
	}
	return kernel.UUIDFromString(p.OrderID)
}

func (r *Router) joinOrderTracking(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	orderID, err := r.decodeOrderRef(data)
	if err != nil {
		return nil, err
	}

	query, err := queries.NewAuthorizeOrderRoomQuery(orderID, c.Principal())
	if err != nil {
		return nil, err
	}
	if err = r.handlers.Rooms.Handle(ctx, query); err != nil {
		return nil, err
	}

	r.hub.Join(c, orderID)
	return nil, nil
}

func (r *Router) leaveOrderTracking(_ context.Context, c *Client, data json.RawMessage) (any, error) {
	orderID, err := r.decodeOrderRef(data)
	if err != nil {
		return nil, err
	}

	r.hub.Leave(c, orderID)
	return nil, nil
}

type locationUpdatePayload struct {
	OrderID   string   `json:"orderId" validate:"omitempty,uuid"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Speed     float64  `json:"speed" validate:"gte=0"`
	// Heading -1 means unknown.
	Heading   float64  `json:"heading" validate:"gte=-1,lte=360"`
	Accuracy  float64  `json:"accuracy" validate:"gte=0"`
}

func (r *Router) locationUpdate(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var p locationUpdatePayload
	if err := r.validator.DecodeLenient(data, &p); err != nil {
		return nil, err
	}

	params := commands.UpdateLocationParams{
		PartnerID: c.Principal().ID,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Speed:     p.Speed,
		Heading:   p.Heading,
		Accuracy:  p.Accuracy,
	}
	if p.OrderID != "" {
		orderID, err := kernel.UUIDFromString(p.OrderID)
		if err != nil {
			return nil, err
		}
		params.OrderID = &orderID
	}

	command, err := commands.NewUpdateLocationCommand(params)
	if err != nil {
		return nil, err
	}
	return nil, r.handlers.Location.Handle(ctx, command)
}

type statusUpdatePayload struct {
	OrderID    string   `json:"orderId" validate:"required,uuid"`
	Status     string   `json:"status" validate:"required"`
	Latitude   *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
	Notes      string   `json:"notes" validate:"max=1000"`
	ImageProof string   `json:"imageProof" validate:"max=2048"`
}

type statusUpdateResult struct {
	Status  tracking.Status `json:"status"`
	Version int64           `json:"version"`
}

func (r *Router) statusUpdate(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var p statusUpdatePayload
	if err := r.validator.Decode(data, &p); err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromString(p.OrderID)
	if err != nil {
		return nil, err
	}
	var location *kernel.Location
	if p.Latitude != nil && p.Longitude != nil {
		loc, err := kernel.NewLocation(*p.Latitude, *p.Longitude)
		if err != nil {
			return nil, err
		}
		location = &loc
	}

	command, err := commands.NewUpdateStatusCommand(c.Principal().ID, orderID, p.Status, location, p.Notes, p.ImageProof)
	if err != nil {
		return nil, err
	}
	session, err := r.handlers.Status.Handle(ctx, command)
	if err != nil {
		return nil, err
	}
	return statusUpdateResult{Status: session.Status(), Version: session.Version()}, nil
}

type toggleAvailabilityPayload struct {
	IsOnDuty *bool `json:"isOnDuty" validate:"required"`
}

func (r *Router) toggleAvailability(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var p toggleAvailabilityPayload
	if err := r.validator.Decode(data, &p); err != nil {
		return nil, err
	}

	command, err := commands.NewToggleAvailabilityCommand(c.Principal().ID, *p.IsOnDuty)
	if err != nil {
		return nil, err
	}
	return nil, r.handlers.Availability.Handle(ctx, command)
}

type reportIssuePayload struct {
	OrderID     string `json:"orderId" validate:"required,uuid"`
	IssueType   string `json:"issueType" validate:"required"`
	Description string `json:"description" validate:"max=2000"`
}

func (r *Router) reportIssue(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var p reportIssuePayload
	if err := r.validator.Decode(data, &p); err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromString(p.OrderID)
	if err != nil {
		return nil, err
	}
	command, err := commands.NewReportIssueCommand(c.Principal().ID, orderID, p.IssueType, p.Description)
	if err != nil {
		return nil, err
	}
	issue, err := r.handlers.Issue.Handle(ctx, command)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (r *Router) requestDeliveryUpdate(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	orderID, err := r.decodeOrderRef(data)
	if err != nil {
		return nil, err
	}

	query, err := queries.NewGetTrackingSessionQuery(orderID, c.Principal())
	if err != nil {
		return nil, err
	}
	snapshot, err := r.handlers.Session.Handle(ctx, query)
	if err != nil {
		return nil, err
	}

	c.reply(EventDeliveryUpdate, snapshot)
	return nil, nil
}

type deliveryFeedbackPayload struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (r *Router) deliveryFeedback(ctx context.Context, c *Client, data json.RawMessage) (any, error) {
	var p deliveryFeedbackPayload
	if err := r.validator.Decode(data, &p); err != nil {
		return nil, err
	}

	orderID, err := kernel.UUIDFromString(p.OrderID)
	if err != nil {
		return nil, err
	}
	command, err := commands.NewSubmitFeedbackCommand(c.Principal().ID, orderID, p.Rating, p.Comment)
	if err != nil {
		return nil, err
	}
	return nil, r.handlers.Feedback.Handle(ctx, command)
}
