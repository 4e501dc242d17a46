package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), 0)
	assert.Equal(t, 30*time.Second, sm.shutdownTimeout)
}

func TestShutdown_RunsAllFuncs(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)

	var calls int32
	for i := 0; i < 3; i++ {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestShutdown_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), time.Second)
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return errors.New("redis close failed") })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 errors")
	assert.Contains(t, err.Error(), "redis close failed")
}

func TestShutdown_Timeout(t *testing.T) {
	sm := NewShutdownManager(NopLogger(), 50*time.Millisecond)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestWaitForContext_StopsServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.NotFoundHandler()}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	ctx, cancel := context.WithCancel(context.Background())
	sm := NewShutdownManager(NopLogger(), time.Second, srv)

	cancel()
	require.NoError(t, sm.WaitForContext(ctx))
	assert.ErrorIs(t, <-served, http.ErrServerClosed)
}
