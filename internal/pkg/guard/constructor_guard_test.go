package guard_test

import (
	"errors"
	"sync"
	"testing"

	"dispatch/internal/pkg/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTicketIsNotConstructed = errors.New("ticket must be created via newTicket")

// ticket stands in for a command or value object built behind a constructor.
type ticket struct {
	orderID string
	guard   guard.ConstructorGuard
}

func newTicket(orderID string) (ticket, error) {
	if orderID == "" {
		return ticket{}, errors.New("order id is required")
	}
	return ticket{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (t ticket) Validate() error {
	return t.guard.Validate(errTicketIsNotConstructed)
}

func TestConstructorGuard_Validate(t *testing.T) {
	tests := []struct {
		name    string
		guard   guard.ConstructorGuard
		passed  error
		wantErr error
	}{
		{
			name:   "constructed with custom error",
			guard:  guard.NewConstructorGuard(),
			passed: errTicketIsNotConstructed,
		},
		{
			name:  "constructed with nil error",
			guard: guard.NewConstructorGuard(),
		},
		{
			name:    "zero value returns the supplied error",
			passed:  errTicketIsNotConstructed,
			wantErr: errTicketIsNotConstructed,
		},
		{
			name:    "zero value falls back to the default error",
			wantErr: guard.ErrDefaultConstructorGuard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guard.Validate(tt.passed)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestConstructorGuard_EmbeddedInType(t *testing.T) {
	built, err := newTicket("order-1")
	require.NoError(t, err)
	require.NoError(t, built.Validate())

	copied := built
	require.NoError(t, copied.Validate())

	var zero ticket
	assert.ErrorIs(t, zero.Validate(), errTicketIsNotConstructed)

	_, err = newTicket("")
	require.Error(t, err)
}

func TestConstructorGuard_ConcurrentValidate(t *testing.T) {
	g := guard.NewConstructorGuard()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.NoError(t, g.Validate(errTicketIsNotConstructed))
			}
		}()
	}
	wg.Wait()
}

func TestErrDefaultConstructorGuard(t *testing.T) {
	assert.Equal(t, "object must be created via its constructor", guard.ErrDefaultConstructorGuard.Error())
}
