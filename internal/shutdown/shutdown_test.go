package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestShutdown_RunsHooksInOrder(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gs := NewGracefulShutdown(zap.New(core), time.Second)

	var order []string
	gs.Register("http", func(ctx context.Context) error {
		order = append(order, "http")
		return errors.New("already closed")
	})
	gs.Register("queue", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		order = append(order, "queue")
		return nil
	})

	gs.Shutdown()

	assert.Equal(t, []string{"http", "queue"}, order)
	assert.Equal(t, 1, logs.FilterMessage("Cleanup hook failed").Len())
}

func TestWait_ReturnsWhenContextDone(t *testing.T) {
	gs := NewGracefulShutdown(zap.NewNop(), time.Second)

	ran := make(chan struct{})
	gs.Register("probe", func(ctx context.Context) error {
		close(ran)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gs.Wait(ctx)

	select {
	case <-ran:
	default:
		t.Fatal("hook did not run")
	}
}
