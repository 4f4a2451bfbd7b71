package redisfanout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch/internal/adapters/in/realtime"
	"dispatch/internal/adapters/out/redisfanout"
	"dispatch/internal/core/domain/model/kernel"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type recordingDeliverer struct {
	mu         sync.Mutex
	broadcasts []realtime.Broadcast
}

func (d *recordingDeliverer) Deliver(b realtime.Broadcast) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcasts = append(d.broadcasts, b)
	return 1
}

func (d *recordingDeliverer) received() []realtime.Broadcast {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]realtime.Broadcast(nil), d.broadcasts...)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, _ string, _ any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetErr(errors.New("connection refused"))
	return cmd
}

func TestPublisher_FallsBackToLocalDelivery(t *testing.T) {
	local := &recordingDeliverer{}
	publisher := redisfanout.NewPublisher(failingPublisher{}, "", local)

	err := publisher.Publish(t.Context(), realtime.Broadcast{Event: "delivery_feedback_received", Frame: []byte(`{}`), Admins: true})

	require.Error(t, err)
	require.Len(t, local.received(), 1)
	assert.Equal(t, "delivery_feedback_received", local.received()[0].Event)
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := redisfanout.Connect(t.Context(), redisfanout.Options{})
	require.Error(t, err)
}

func TestRelay_DeliversToEveryInstance(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redisfanout.Connect(ctx, redisfanout.Options{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	instances := []*recordingDeliverer{{}, {}}
	var wg sync.WaitGroup
	for _, deliverer := range instances {
		relay := redisfanout.NewRelay(client, "test:realtime", deliverer, zerolog.Nop())
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, relay.Run(runCtx))
		}()
		select {
		case <-relay.Ready():
		case <-time.After(10 * time.Second):
			t.Fatal("relay did not subscribe")
		}
	}

	orderID := kernel.NewUUID()
	publisher := redisfanout.NewPublisher(client, "test:realtime", nil)
	require.NoError(t, publisher.Publish(ctx, realtime.Broadcast{
		Event:     "delivery_status_update",
		Frame:     []byte(`{"event":"delivery_status_update","data":{"status":"picked_up"}}`),
		OrderRoom: &orderID,
		Admins:    true,
	}))

	for _, deliverer := range instances {
		require.Eventually(t, func() bool { return len(deliverer.received()) == 1 }, 5*time.Second, 20*time.Millisecond)
		got := deliverer.received()[0]
		assert.Equal(t, "delivery_status_update", got.Event)
		require.NotNil(t, got.OrderRoom)
		assert.True(t, got.OrderRoom.IsEqual(orderID))
		assert.True(t, got.Admins)
		assert.Nil(t, got.Partner)
		assert.JSONEq(t, `{"event":"delivery_status_update","data":{"status":"picked_up"}}`, string(got.Frame))
	}

	cancel()
	wg.Wait()
}
