package realtime_test

import (
	"context"
	"sync"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/tracking"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockLocationHandler struct{ mock.Mock }

func (m *MockLocationHandler) Handle(ctx context.Context, command commands.UpdateLocationCommand) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}

type MockStatusHandler struct{ mock.Mock }

func (m *MockStatusHandler) Handle(ctx context.Context, command commands.UpdateStatusCommand) (tracking.Session, error) {
	args := m.Called(ctx, command)
	return args.Get(0).(tracking.Session), args.Error(1)
}

type MockAvailabilityHandler struct{ mock.Mock }

func (m *MockAvailabilityHandler) Handle(ctx context.Context, command commands.ToggleAvailabilityCommand) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}

type MockIssueHandler struct{ mock.Mock }

func (m *MockIssueHandler) Handle(ctx context.Context, command commands.ReportIssueCommand) (tracking.Issue, error) {
	args := m.Called(ctx, command)
	return args.Get(0).(tracking.Issue), args.Error(1)
}

type MockFeedbackHandler struct{ mock.Mock }

func (m *MockFeedbackHandler) Handle(ctx context.Context, command commands.SubmitFeedbackCommand) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}

type MockSessionReader struct{ mock.Mock }

func (m *MockSessionReader) Handle(ctx context.Context, query queries.GetTrackingSessionQuery) (tracking.Snapshot, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(tracking.Snapshot), args.Error(1)
}

type MockRoomAuthorizer struct{ mock.Mock }

func (m *MockRoomAuthorizer) Handle(ctx context.Context, query queries.AuthorizeOrderRoomQuery) error {
	args := m.Called(ctx, query)
	return args.Error(0)
}

// presenceRecorder records partner connects and disconnects.
type presenceRecorder struct {
	mu      sync.Mutex
	calls   []commands.PartnerPresenceCommand
	err     error
	offline chan commands.PartnerPresenceCommand
}

func newPresenceRecorder() *presenceRecorder {
	return &presenceRecorder{offline: make(chan commands.PartnerPresenceCommand, 16)}
}

func (p *presenceRecorder) Handle(_ context.Context, command commands.PartnerPresenceCommand) (ports.Presence, error) {
	p.mu.Lock()
	p.calls = append(p.calls, command)
	err := p.err
	p.mu.Unlock()

	if !command.Online() {
		p.offline <- command
	}
	return ports.Presence{PartnerID: command.PartnerID(), Online: command.Online()}, err
}

func (p *presenceRecorder) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *presenceRecorder) onlineCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, c := range p.calls {
		if c.Online() {
			n++
		}
	}
	return n
}

// activityRecorder counts Touch calls per partner.
type activityRecorder struct {
	mu      sync.Mutex
	touches map[kernel.UUID]int
}

func newActivityRecorder() *activityRecorder {
	return &activityRecorder{touches: make(map[kernel.UUID]int)}
}

func (a *activityRecorder) Touch(partnerID kernel.UUID, _ time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.touches[partnerID]++
	return true
}

func (a *activityRecorder) count(id kernel.UUID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.touches[id]
}

func (a *activityRecorder) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.touches {
		n += c
	}
	return n
}
