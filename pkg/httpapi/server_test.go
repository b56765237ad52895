package httpapi_test

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

	"github.com/dmitrymomot/flagkit/pkg/httpapi"
)

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "unable to get free port")
	addr := l.Addr().String()
	require.NoError(t, l.Close(), "close listener")
	return addr
}

func waitListening(t *testing.T, addr string) {
	t.Helper()
	var err error
	for range 50 {
		var resp *http.Response
		resp, err = http.Get("http://" + addr)
		if err == nil {
			require.NoError(t, resp.Body.Close(), "close body")
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, err, "http get after 50 retries")
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	var flushed atomic.Bool
	srv := httpapi.NewServer(
		httpapi.WithAddr(addr),
		httpapi.WithShutdownTimeout(100*time.Millisecond),
		httpapi.WithShutdownHook(func(context.Context) error {
			flushed.Store(true)
			return nil
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	}()
	waitListening(t, addr)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
	assert.True(t, flushed.Load(), "shutdown hook not executed")
	require.NoError(t, srv.Shutdown(context.Background()), "second shutdown")
}

func TestShutdownHookError(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	srv := httpapi.NewServer(
		httpapi.WithAddr(addr),
		httpapi.WithShutdownHook(func(context.Context) error { return errors.New("flush failed") }),
	)

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), http.NewServeMux()) }()
	waitListening(t, addr)

	err := srv.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, httpapi.ErrShutdown)
	assert.Contains(t, err.Error(), "flush failed")

	select {
	case err := <-done:
		require.NoError(t, err, "run error")
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestStartError(t *testing.T) {
	t.Parallel()
	srv := httpapi.NewServer(httpapi.WithAddr(":invalid"))
	err := srv.Run(context.Background(), http.NewServeMux())
	require.Error(t, err)
	assert.ErrorIs(t, err, httpapi.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	srv := httpapi.NewServer(httpapi.WithAddr(addr), httpapi.WithShutdownTimeout(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Run(ctx, http.NewServeMux()) }()
	waitListening(t, addr)

	err := srv.Run(context.Background(), http.NewServeMux())
	require.Error(t, err)
	assert.ErrorIs(t, err, httpapi.ErrStart)
	_ = srv.Shutdown(context.Background())
}

func TestNewServerFromConfig(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	srv := httpapi.NewServerFromConfig(httpapi.Config{Addr: addr, ShutdownTimeout: 50 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), http.NewServeMux()) }()
	waitListening(t, addr)
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err, "run error")
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
}
