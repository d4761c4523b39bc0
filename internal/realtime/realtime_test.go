package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	ctx := context.Background()
	b := NewBroker()
	a := b.Subscribe("post-1")
	c := b.Subscribe("post-1")
	other := b.Subscribe("post-2")
	assert.Equal(t, 2, b.Subscribers("post-1"))

	require.NoError(t, b.Publish(ctx, "post-1", []byte("hello")))

	assert.Equal(t, "hello", string(<-a))
	assert.Equal(t, "hello", string(<-c))
	select {
	case msg := <-other:
		t.Fatalf("post-2 got %q", msg)
	default:
	}

	b.Unsubscribe("post-1", a)
	b.Unsubscribe("post-1", c)
	assert.Zero(t, b.Subscribers("post-1"))
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	ctx := context.Background()
	b := NewBroker()
	ch := b.Subscribe("post-1")

	for range 100 {
		require.NoError(t, b.Publish(ctx, "post-1", []byte("x")))
	}
	assert.Equal(t, cap(ch), len(ch))
}

func TestRelayForwardsRedisMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	local := NewBroker()
	sub := local.Subscribe("post-9")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRelay(rdb, "test:", local, slog.Default()).Run(ctx) }()

	pub := NewRedisPublisher(rdb, "test:")
	require.NoError(t, pub.Check(ctx))

	var got []byte
	require.Eventually(t, func() bool {
		if err := pub.Publish(ctx, "post-9", []byte(`{"type":"newChallenge"}`)); err != nil {
			return false
		}
		select {
		case got = <-sub:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"type":"newChallenge"}`, string(got))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
