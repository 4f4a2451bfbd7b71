package tracking

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

const (
	// OnTimeToleranceMinutes is the largest delay still counted as on time.
	OnTimeToleranceMinutes = 5

	maxIssueTypeLength    = 64
	maxDescriptionLength  = 1000
	maxFeedbackCommentLen = 1000
	minFeedbackRating     = 1
	maxFeedbackRating     = 5
)

// Session errors.
var (
	ErrSessionIsNotConstructed = errors.New("Session must be created via NewSession constructor")
	// ErrTerminalState is returned for any change to a finished session.
	ErrTerminalState = errs.NewValueIsInvalidError("session is in a terminal state")
	// ErrIllegalTransition is returned for an edge outside the state machine.
	ErrIllegalTransition = errs.NewValueIsInvalidError("illegal status transition")
	// ErrStaleRoutePoint is returned for a route point older than the last one.
	ErrStaleRoutePoint = errs.NewValueIsInvalidError("route point is older than the last recorded point")
	// ErrDeliveryProofRequired is returned when delivered is reported without a verified
	// OTP or an image proof.
	ErrDeliveryProofRequired = errs.NewValueIsInvalidError("delivery proof is required")
	// ErrFeedbackNotAllowed is returned for feedback on a session that was not delivered.
	ErrFeedbackNotAllowed = errs.NewValueIsInvalidError("feedback is only accepted for delivered orders")
	// ErrFeedbackAlreadySubmitted is returned for a second feedback.
	ErrFeedbackAlreadySubmitted = errs.NewConflictError("feedback", "already submitted")
	// ErrIssueTypeIsRequired is returned by ReportIssue without a type.
	ErrIssueTypeIsRequired = errs.NewValueIsRequiredError("issueType")
)

// TimelineEntry is one recorded status change.
type TimelineEntry struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Location  *kernel.Location `json:"location,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Proof     string           `json:"proof,omitempty"`
}

// RoutePoint is one location sample reported by the partner while delivering.
type RoutePoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Accuracy  float64   `json:"accuracy"`
}

// Location returns the point's coordinates as a validated Location.
func (p RoutePoint) Location() (kernel.Location, error) {
	return kernel.NewLocation(p.Lat, p.Lng)
}

// Metrics are the derived delivery figures.
// Pointer fields stay nil until the corresponding event happened.
type Metrics struct {
	TotalDistanceKm       float64    `json:"totalDistanceKm"`
	DistanceToCustomerKm  float64    `json:"distanceToCustomerKm"`
	EstimatedDeliveryTime time.Time  `json:"estimatedDeliveryTime"`
	ActualPickupTime      *time.Time `json:"actualPickupTime,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actualDeliveryTime,omitempty"`
	TotalDurationMinutes  *int       `json:"totalDurationMinutes,omitempty"`
	DelayMinutes          *int       `json:"delayMinutes,omitempty"`
	OnTimeDelivery        *bool      `json:"onTimeDelivery,omitempty"`
}

// Feedback is the customer's rating of a delivered order.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Issue is a problem reported by the partner during delivery.
type Issue struct {
	ID          kernel.UUID `json:"id"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	ReportedAt  time.Time   `json:"reportedAt"`
}

// TransitionDetails is the optional context recorded with a status change.
type TransitionDetails struct {
	Location *kernel.Location
	Notes    string
	Proof    string
}

// Session is the tracking record of one order, from assignment to a terminal state.
//
// Session is an immutable value: every mutator returns a new Session. Slices are never
// shared between the receiver and the result, so a Session read by one goroutine cannot
// be changed by another. The zero value is invalid.
//
// Invariants:
//   - status moves only along the allowed edges
//   - timeline has one entry per status change, starting with assigned
//   - route timestamps are non-decreasing
//   - once terminal, only a single feedback on a delivered session is accepted
type Session struct {
	orderID          kernel.UUID
	partnerID        kernel.UUID
	customerID       kernel.UUID
	status           Status
	timeline         []TimelineEntry
	route            []RoutePoint
	storeLocation    kernel.Location
	customerLocation kernel.Location
	metrics          Metrics
	otp              kernel.OTP
	feedback         *Feedback
	issues           []Issue
	createdAt        time.Time
	updatedAt        time.Time
	version          int64
	guard            guard.ConstructorGuard
}

// NewSessionParams are the assignment-time inputs of a session.
type NewSessionParams struct {
	OrderID               kernel.UUID
	PartnerID             kernel.UUID
	CustomerID            kernel.UUID
	StoreLocation         kernel.Location
	CustomerLocation      kernel.Location
	OTP                   kernel.OTP
	EstimatedDeliveryTime time.Time
	Now                   time.Time
}

// NewSession creates a session in the assigned state with a single timeline entry.
//
// Returns:
//   - Session: The new session, version 0
//   - error: Validation error for any invalid identifier, location or OTP (joined)
func NewSession(params NewSessionParams) (Session, error) {
	if err := errors.Join(
		params.OrderID.Validate(),
		params.PartnerID.Validate(),
		params.CustomerID.Validate(),
		params.StoreLocation.Validate(),
		params.CustomerLocation.Validate(),
		params.OTP.Validate(),
	); err != nil {
		return Session{}, err
	}
	if params.Now.IsZero() {
		return Session{}, errs.NewValueIsRequiredError("now")
	}

	distance, err := params.StoreLocation.DistanceKm(params.CustomerLocation)
	if err != nil {
		return Session{}, err
	}

	return Session{
		orderID:          params.OrderID,
		partnerID:        params.PartnerID,
		customerID:       params.CustomerID,
		status:           Assigned,
		timeline:         []TimelineEntry{{Status: Assigned, Timestamp: params.Now}},
		storeLocation:    params.StoreLocation,
		customerLocation: params.CustomerLocation,
		metrics: Metrics{
			DistanceToCustomerKm:  distance,
			EstimatedDeliveryTime: params.EstimatedDeliveryTime,
		},
		otp:       params.OTP,
		createdAt: params.Now,
		updatedAt: params.Now,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate reports whether the Session was built by NewSession or RestoreSession.
func (s Session) Validate() error {
	return s.guard.Validate(ErrSessionIsNotConstructed)
}

// OrderID returns the order the session tracks; it is also the session key.
func (s Session) OrderID() kernel.UUID {
	return s.orderID
}

// PartnerID returns the assigned partner.
func (s Session) PartnerID() kernel.UUID {
	return s.partnerID
}

// CustomerID returns the customer who placed the order.
func (s Session) CustomerID() kernel.UUID {
	return s.customerID
}

// Status returns the current delivery state.
func (s Session) Status() Status {
	return s.status
}

// StoreLocation returns the pickup point.
func (s Session) StoreLocation() kernel.Location {
	return s.storeLocation
}

// CustomerLocation returns the delivery point.
func (s Session) CustomerLocation() kernel.Location {
	return s.customerLocation
}

// Metrics returns a copy of the derived figures.
func (s Session) Metrics() Metrics {
	return copyMetrics(s.metrics)
}

// OTP returns the delivery OTP.
func (s Session) OTP() kernel.OTP {
	return s.otp
}

// CreatedAt returns the assignment time.
func (s Session) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns the time of the last change.
func (s Session) UpdatedAt() time.Time {
	return s.updatedAt
}

// Version is the optimistic-lock counter of the persisted document.
func (s Session) Version() int64 {
	return s.version
}

// WithVersion returns the session stamped with the version assigned by storage.
func (s Session) WithVersion(version int64) Session {
	s.version = version
	return s
}

// IsTerminal reports whether the session is finished.
func (s Session) IsTerminal() bool {
	return s.status.IsTerminal()
}

// Timeline returns a copy of the status history.
func (s Session) Timeline() []TimelineEntry {
	return slices.Clone(s.timeline)
}

// Route returns a copy of the recorded route.
func (s Session) Route() []RoutePoint {
	return slices.Clone(s.route)
}

// Issues returns a copy of the reported issues.
func (s Session) Issues() []Issue {
	return slices.Clone(s.issues)
}

// Feedback returns the customer's feedback, nil if none.
func (s Session) Feedback() *Feedback {
	if s.feedback == nil {
		return nil
	}
	f := *s.feedback
	return &f
}

// Transition moves the session to next and appends one timeline entry.
//
// Parameters:
//   - next: Target status
//   - details: Optional location, notes and proof stored with the timeline entry
//   - now: Time of the change
//
// Returns:
//   - Session: The updated session
//   - error: ErrTerminalState from a finished session, ErrIllegalTransition for an edge
//     outside the state machine, ErrDeliveryProofRequired for delivered without a
//     verified OTP or proof
//
// Entering picked_up stamps the actual pickup time. Entering delivered computes the
// duration, the delay against the estimate and the on-time flag.
func (s Session) Transition(next Status, details TransitionDetails, now time.Time) (Session, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}
	if next == Delivered && !s.otp.Verified() && strings.TrimSpace(details.Proof) == "" {
		if err := s.checkEdge(next); err != nil {
			return s, err
		}
		return s, ErrDeliveryProofRequired
	}
	return s.transition(next, details, now)
}

// AppendRoutePoint records a location sample and recomputes the distance figures.
//
// Returns:
//   - Session: The updated session
//   - error: ErrTerminalState on a finished session, ErrStaleRoutePoint when the point is
//     older than the last one, a validation error for invalid coordinates
//
// Equal timestamps are accepted. The ETA is recomputed from the remaining distance and
// the reported speed, clamped by kernel.ETA.
func (s Session) AppendRoutePoint(point RoutePoint, now time.Time) (Session, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}
	if s.IsTerminal() {
		return s, ErrTerminalState
	}
	loc, err := point.Location()
	if err != nil {
		return s, err
	}

	metrics := copyMetrics(s.metrics)
	if n := len(s.route); n > 0 {
		last := s.route[n-1]
		if point.Timestamp.Before(last.Timestamp) {
			return s, ErrStaleRoutePoint
		}
		lastLoc, err := last.Location()
		if err != nil {
			return s, err
		}
		step, err := lastLoc.DistanceKm(loc)
		if err != nil {
			return s, err
		}
		metrics.TotalDistanceKm += step
	}

	toCustomer, err := loc.DistanceKm(s.customerLocation)
	if err != nil {
		return s, err
	}
	metrics.DistanceToCustomerKm = toCustomer
	metrics.EstimatedDeliveryTime = kernel.ETA(now, toCustomer, point.Speed)

	out := s.clone()
	out.route = append(out.route, point)
	out.metrics = metrics
	out.updatedAt = now
	return out, nil
}

// VerifyOTP checks the customer's code and, on success, marks the OTP used and moves
// the session to delivered.
//
// Returns:
//   - Session: The delivered session
//   - error: kernel.ErrOTPAlreadyUsed, kernel.ErrInvalidOTP, kernel.ErrOTPExpired, or
//     ErrIllegalTransition when the partner has not arrived yet
//
// A failed check leaves the session and the OTP unchanged.
func (s Session) VerifyOTP(code string, now time.Time) (Session, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}

	otp, err := s.otp.Verify(code, now)
	if err != nil {
		return s, err
	}
	if err := s.checkEdge(Delivered); err != nil {
		return s, err
	}

	out := s.clone()
	out.otp = otp
	return out.transition(Delivered, TransitionDetails{Notes: "OTP verified"}, now)
}

// ReportIssue appends an issue. The status is unchanged.
//
// Returns:
//   - Session: The updated session
//   - Issue: The stored issue with its generated ID
//   - error: ErrTerminalState on a finished session, ErrIssueTypeIsRequired without a type
func (s Session) ReportIssue(issueType, description string, now time.Time) (Session, Issue, error) {
	if err := s.Validate(); err != nil {
		return s, Issue{}, err
	}
	if s.IsTerminal() {
		return s, Issue{}, ErrTerminalState
	}
	issueType = strings.TrimSpace(issueType)
	if issueType == "" {
		return s, Issue{}, ErrIssueTypeIsRequired
	}
	if len(issueType) > maxIssueTypeLength || len(description) > maxDescriptionLength {
		return s, Issue{}, errs.NewValueIsInvalidError("issue is too long")
	}

	issue := Issue{
		ID:          kernel.NewUUID(),
		Type:        issueType,
		Description: description,
		ReportedAt:  now,
	}

	out := s.clone()
	out.issues = append(out.issues, issue)
	out.updatedAt = now
	return out, issue, nil
}

// AttachFeedback stores the customer's rating of a delivered order, once.
//
// Returns:
//   - Session: The updated session
//   - error: ValueIsOutOfRangeError for a rating outside 1..5, ErrFeedbackNotAllowed
//     unless delivered, ErrFeedbackAlreadySubmitted for a second feedback
func (s Session) AttachFeedback(rating int, comment string, now time.Time) (Session, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}
	if rating < minFeedbackRating || rating > maxFeedbackRating {
		return s, errs.NewValueIsOutOfRangeError("rating", rating, minFeedbackRating, maxFeedbackRating)
	}
	if len(comment) > maxFeedbackCommentLen {
		return s, errs.NewValueIsInvalidError("comment is too long")
	}
	if s.status != Delivered {
		return s, ErrFeedbackNotAllowed
	}
	if s.feedback != nil {
		return s, ErrFeedbackAlreadySubmitted
	}

	out := s.clone()
	out.feedback = &Feedback{Rating: rating, Comment: comment, SubmittedAt: now}
	out.updatedAt = now
	return out, nil
}

func (s Session) checkEdge(next Status) error {
	if s.IsTerminal() {
		return ErrTerminalState
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrIllegalTransition, err)
	}
	if !s.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.status, next)
	}
	return nil
}

func (s Session) transition(next Status, details TransitionDetails, now time.Time) (Session, error) {
	if err := s.checkEdge(next); err != nil {
		return s, err
	}
	if details.Location != nil {
		if err := details.Location.Validate(); err != nil {
			return s, err
		}
	}

	entry := TimelineEntry{
		Status:    next,
		Timestamp: now,
		Notes:     details.Notes,
		Proof:     details.Proof,
	}
	if details.Location != nil {
		loc := *details.Location
		entry.Location = &loc
	}

	out := s.clone()
	out.status = next
	out.timeline = append(out.timeline, entry)
	out.updatedAt = now

	switch next {
	case PickedUp:
		at := now
		out.metrics.ActualPickupTime = &at
	case Delivered:
		out.metrics = deliveredMetrics(out.metrics, s.createdAt, now)
	}

	return out, nil
}

func deliveredMetrics(m Metrics, createdAt, now time.Time) Metrics {
	at := now
	duration := roundMinutes(now.Sub(createdAt))
	delay := roundMinutes(now.Sub(m.EstimatedDeliveryTime))
	onTime := delay <= OnTimeToleranceMinutes

	m.ActualDeliveryTime = &at
	m.TotalDurationMinutes = &duration
	m.DelayMinutes = &delay
	m.OnTimeDelivery = &onTime
	return m
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// clone returns a copy whose slices can be appended to without touching s.
func (s Session) clone() Session {
	out := s
	out.timeline = slices.Clone(s.timeline)
	out.route = slices.Clone(s.route)
	out.issues = slices.Clone(s.issues)
	out.metrics = copyMetrics(s.metrics)
	if s.feedback != nil {
		f := *s.feedback
		out.feedback = &f
	}
	return out
}

func copyMetrics(m Metrics) Metrics {
	out := m
	out.ActualPickupTime = copyPtr(m.ActualPickupTime)
	out.ActualDeliveryTime = copyPtr(m.ActualDeliveryTime)
	out.TotalDurationMinutes = copyPtr(m.TotalDurationMinutes)
	out.DelayMinutes = copyPtr(m.DelayMinutes)
	out.OnTimeDelivery = copyPtr(m.OnTimeDelivery)
	return out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
