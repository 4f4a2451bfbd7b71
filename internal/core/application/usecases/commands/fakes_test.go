package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/keylock"
	"dispatch/internal/registry"

	"github.com/stretchr/testify/require"
)

const testOTP = "123456"

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

var (
	customerLocation = kernel.MustNewLocation(28.60, 77.20)
	storeLocation    = kernel.MustNewLocation(28.63, 77.22)
)

// memStore is a transactional in-memory store. Writes are staged per unit of work and
// applied on Commit; every read returns a copy.
type memStore struct {
	mu       sync.Mutex
	orders   map[kernel.UUID]*order.Order
	partners map[kernel.UUID]*partner.Partner
	sessions map[kernel.UUID]tracking.Session
	commits  int

	failSessionAdd error
	failCommit     error
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[kernel.UUID]*order.Order),
		partners: make(map[kernel.UUID]*partner.Partner),
		sessions: make(map[kernel.UUID]tracking.Session),
	}
}

func (s *memStore) order(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	require.True(t, ok)
	return cloneOrder(o)
}

func (s *memStore) partner(t *testing.T, id kernel.UUID) *partner.Partner {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	require.True(t, ok)
	return clonePartner(p)
}

func (s *memStore) putPartner(p *partner.Partner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners[p.ID()] = clonePartner(p)
}

func (s *memStore) session(id kernel.UUID) (tracking.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

type uowFactory struct{ store *memStore }

func (f uowFactory) Create() commands.UoW {
	return &memUoW{store: f.store}
}

type partnerUoWFactory struct{ store *memStore }

func (f partnerUoWFactory) Create() commands.PartnerUoW {
	return &memUoW{store: f.store}
}

type memUoW struct {
	store    *memStore
	active   bool
	orders   map[kernel.UUID]*order.Order
	partners map[kernel.UUID]*partner.Partner
	sessions map[kernel.UUID]tracking.Session
}

func (u *memUoW) Begin(context.Context) error {
	u.active = true
	u.orders = make(map[kernel.UUID]*order.Order)
	u.partners = make(map[kernel.UUID]*partner.Partner)
	u.sessions = make(map[kernel.UUID]tracking.Session)
	return nil
}

func (u *memUoW) Commit(context.Context) error {
	if !u.active {
		return nil
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.store.failCommit != nil {
		return u.store.failCommit
	}
	for id, o := range u.orders {
		u.store.orders[id] = o
	}
	for id, p := range u.partners {
		u.store.partners[id] = p
	}
	for id, session := range u.sessions {
		u.store.sessions[id] = session
	}
	u.store.commits++
	u.active = false
	return nil
}

func (u *memUoW) Rollback(context.Context) error {
	u.active = false
	return nil
}

func (u *memUoW) OrderRepository() ports.OrderRepository     { return memOrders{u} }
func (u *memUoW) PartnerRepository() ports.PartnerRepository { return memPartners{u} }
func (u *memUoW) SessionRepository() ports.SessionRepository { return memSessions{u} }

type memOrders struct{ u *memUoW }

func (r memOrders) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	if o, ok := r.u.orders[id]; ok {
		return cloneOrder(o), nil
	}
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	o, ok := r.u.store.orders[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	return cloneOrder(o), nil
}

func (r memOrders) Update(_ context.Context, o *order.Order) error {
	r.u.orders[o.ID()] = cloneOrder(o)
	return nil
}

type memPartners struct{ u *memUoW }

func (r memPartners) Get(_ context.Context, id kernel.UUID) (*partner.Partner, error) {
	if p, ok := r.u.partners[id]; ok {
		return clonePartner(p), nil
	}
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	p, ok := r.u.store.partners[id]
	if !ok {
		return nil, errs.NewObjectNotFoundError("partner", id)
	}
	return clonePartner(p), nil
}

func (r memPartners) GetForUpdate(ctx context.Context, id kernel.UUID) (*partner.Partner, error) {
	return r.Get(ctx, id)
}

func (r memPartners) Update(_ context.Context, p *partner.Partner) error {
	r.u.partners[p.ID()] = clonePartner(p)
	return nil
}

func (r memPartners) MarkAllOffline(context.Context) (int64, error) {
	return 0, nil
}

type memSessions struct{ u *memUoW }

func (r memSessions) Add(_ context.Context, session tracking.Session) (tracking.Session, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	if r.u.store.failSessionAdd != nil {
		return tracking.Session{}, r.u.store.failSessionAdd
	}
	if _, exists := r.u.store.sessions[session.OrderID()]; exists {
		return tracking.Session{}, errs.NewConflictError("session", "already exists for order")
	}
	saved := session.WithVersion(1)
	r.u.sessions[session.OrderID()] = saved
	return saved, nil
}

func (r memSessions) Update(_ context.Context, session tracking.Session) (tracking.Session, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	current, ok := r.u.store.sessions[session.OrderID()]
	if !ok {
		return tracking.Session{}, errs.NewObjectNotFoundError("session", session.OrderID())
	}
	if current.Version() != session.Version() {
		return tracking.Session{}, errs.NewVersionIsInvalidError("session", nil)
	}
	saved := session.WithVersion(session.Version() + 1)
	r.u.sessions[session.OrderID()] = saved
	return saved, nil
}

func (r memSessions) Get(_ context.Context, orderID kernel.UUID) (tracking.Session, error) {
	if session, ok := r.u.sessions[orderID]; ok {
		return session, nil
	}
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	session, ok := r.u.store.sessions[orderID]
	if !ok {
		return tracking.Session{}, errs.NewObjectNotFoundError("session", orderID)
	}
	return session, nil
}

func (r memSessions) GetActiveByPartner(_ context.Context, partnerID kernel.UUID) (tracking.Session, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	for _, session := range r.u.store.sessions {
		if session.PartnerID().IsEqual(partnerID) && !session.IsTerminal() {
			return session, nil
		}
	}
	return tracking.Session{}, errs.NewObjectNotFoundError("session", partnerID)
}

func cloneOrder(o *order.Order) *order.Order {
	c, err := order.RestoreOrder(order.RestoreParams{
		ID:                    o.ID(),
		CustomerID:            o.CustomerID(),
		StoreLocation:         o.StoreLocation(),
		DeliveryLocation:      o.DeliveryLocation(),
		Status:                o.Status(),
		AssignedPartnerID:     o.AssignedPartner(),
		OTP:                   o.OTP(),
		EstimatedDeliveryTime: o.EstimatedDeliveryTime(),
	})
	if err != nil {
		panic(err)
	}
	return c
}

func clonePartner(p *partner.Partner) *partner.Partner {
	params := partner.RestoreParams{
		ID:                p.ID(),
		Name:              p.Name(),
		Vehicle:           p.Vehicle(),
		LocationUpdatedAt: p.LocationUpdatedAt(),
		Availability:      p.Availability(),
		ActiveOrderID:     p.ActiveOrderID(),
		Statistics:        p.Statistics(),
	}
	if loc, ok := p.Location(); ok {
		params.Location = &loc
	}
	c, err := partner.RestorePartner(params)
	if err != nil {
		panic(err)
	}
	return c
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification ports.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]string, 0, len(n.sent))
	for _, notification := range n.sent {
		events = append(events, notification.Event)
	}
	return events
}

func (n *recordingNotifier) last(t *testing.T) ports.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type fixture struct {
	store      *memStore
	registry   *registry.Registry
	locker     *keylock.Locker
	notifier   *recordingNotifier
	dispatcher services.OrderDispatcher
	now        time.Time
}

func newFixture() *fixture {
	return &fixture{
		store:    newMemStore(),
		registry: registry.New(4),
		locker:   keylock.New(),
		notifier: &recordingNotifier{},
		dispatcher: services.NewOrderDispatcher(func() (string, error) {
			return testOTP, nil
		}, 0, 0),
		now: fixedNow,
	}
}

func (f *fixture) clock() commands.Clock {
	return func() time.Time { return f.now }
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) addOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), storeLocation, customerLocation)
	require.NoError(t, err)
	f.store.mu.Lock()
	f.store.orders[o.ID()] = cloneOrder(o)
	f.store.mu.Unlock()
	return o
}

// addPartner stores an online, on-duty partner at location and registers its connection.
func (f *fixture) addPartner(t *testing.T, name string, location kernel.Location, ratings ...int) *partner.Partner {
	t.Helper()
	p, err := partner.NewPartner(kernel.NewUUID(), name, partner.Vehicle{Type: "bike"})
	require.NoError(t, err)
	p.GoOnline(f.now)
	require.NoError(t, p.SetOnDuty(true, f.now))
	require.NoError(t, p.UpdateLocation(location, f.now))
	for _, r := range ratings {
		require.NoError(t, p.AddRating(r))
	}

	f.store.mu.Lock()
	f.store.partners[p.ID()] = clonePartner(p)
	f.store.mu.Unlock()

	f.registry.SetOnline(p.ID(), "conn-"+name, ports.PresenceSnapshot{
		OnDuty:     true,
		Location:   &location,
		LocationAt: f.now,
		Rating:     p.Statistics().AvgRating,
	}, f.now)
	return p
}

func (f *fixture) autoAssign() commands.AutoAssignCommandHandler {
	return commands.NewAutoAssignCommandHandler(
		uowFactory{f.store}, f.registry, f.locker, f.dispatcher, f.notifier, nil, 0, f.clock())
}

func (f *fixture) acceptOrder() commands.AcceptOrderCommandHandler {
	return commands.NewAcceptOrderCommandHandler(
		uowFactory{f.store}, f.registry, f.locker, f.dispatcher, f.notifier, nil, f.clock())
}

func (f *fixture) updateStatus() commands.UpdateStatusCommandHandler {
	return commands.NewUpdateStatusCommandHandler(
		uowFactory{f.store}, f.registry, f.locker, f.dispatcher, f.notifier, f.clock())
}

func (f *fixture) updateLocation() commands.UpdateLocationCommandHandler {
	return commands.NewUpdateLocationCommandHandler(
		uowFactory{f.store}, f.registry, f.locker, f.notifier, f.clock())
}

func (f *fixture) verifyOTP() commands.VerifyOTPCommandHandler {
	return commands.NewVerifyOTPCommandHandler(
		uowFactory{f.store}, f.registry, f.locker, f.dispatcher, f.notifier, f.clock())
}

func (f *fixture) reportIssue() commands.ReportIssueCommandHandler {
	return commands.NewReportIssueCommandHandler(uowFactory{f.store}, f.locker, f.notifier, f.clock())
}

func (f *fixture) submitFeedback() commands.SubmitFeedbackCommandHandler {
	return commands.NewSubmitFeedbackCommandHandler(uowFactory{f.store}, f.registry, f.locker, f.notifier, f.clock())
}

func (f *fixture) toggleAvailability() commands.ToggleAvailabilityCommandHandler {
	return commands.NewToggleAvailabilityCommandHandler(partnerUoWFactory{f.store}, f.registry, f.notifier, f.clock())
}

func (f *fixture) presence() commands.PartnerPresenceCommandHandler {
	return commands.NewPartnerPresenceCommandHandler(uowFactory{f.store}, f.registry, f.notifier, f.clock())
}

// assigned returns an order given to a single nearby partner.
func (f *fixture) assigned(t *testing.T) (*order.Order, *partner.Partner, tracking.Session) {
	t.Helper()
	o := f.addOrder(t)
	p := f.addPartner(t, "ravi", kernel.MustNewLocation(28.61, 77.21))

	cmd, err := commands.NewAutoAssignCommand(o.ID())
	require.NoError(t, err)
	session, err := f.autoAssign().Handle(t.Context(), cmd)
	require.NoError(t, err)
	f.notifier.reset()
	return o, p, session
}

// moveTo drives the session along the happy path up to target.
func (f *fixture) moveTo(t *testing.T, o *order.Order, p *partner.Partner, target tracking.Status) tracking.Session {
	t.Helper()
	path := []tracking.Status{tracking.PickupStarted, tracking.PickedUp, tracking.InTransit, tracking.Arrived}

	var session tracking.Session
	for _, status := range path {
		cmd, err := commands.NewUpdateStatusCommand(p.ID(), o.ID(), string(status), nil, "", "")
		require.NoError(t, err)
		session, err = f.updateStatus().Handle(t.Context(), cmd)
		require.NoError(t, err)
		if status == target {
			break
		}
	}
	f.notifier.reset()
	return session
}
