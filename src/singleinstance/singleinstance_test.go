package singleinstance

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePortRange points the port range at a single free loopback port.
func freePortRange(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	t.Setenv("SINGLEINSTANCE_PORT_START", fmt.Sprint(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", fmt.Sprint(port))
	return port
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" toggle ")
	require.NoError(t, err)
	assert.Equal(t, ActionToggle, a)

	_, err = ParseAction("reboot")
	assert.Error(t, err)
}

func TestServerClientRoundTrip(t *testing.T) {
	port := freePortRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer srv.Close()
	assert.Equal(t, port, srv.Port())

	got, ok := DetectResidentPort(ctx)
	require.True(t, ok)
	assert.Equal(t, port, got)

	errCh := make(chan error, 1)
	go func() {
		delegated, err := NewClient().Delegate(ctx, ActionTrigger)
		if err == nil && !delegated {
			err = fmt.Errorf("expected delegation")
		}
		errCh <- err
	}()

	conn, err := srv.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionTrigger, conn.Request().Action)
	require.NoError(t, conn.RespondOK())
	require.NoError(t, conn.Close())
	assert.NoError(t, <-errCh)
}

func TestDelegateErrorReply(t *testing.T) {
	freePortRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := NewClient().Delegate(ctx, ActionQuit)
		errCh <- err
	}()

	conn, err := srv.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.RespondError("Busy, please retry"))
	require.NoError(t, conn.Close())
	assert.EqualError(t, <-errCh, "Busy, please retry")
}

func TestDelegateWithoutResident(t *testing.T) {
	freePortRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delegated, err := NewClient().Delegate(ctx, ActionToggle)
	assert.NoError(t, err)
	assert.False(t, delegated)
}

func TestSecondServerFailsToBind(t *testing.T) {
	freePortRange(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewServer()
	if err := first.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer first.Close()

	assert.Error(t, NewServer().Start(ctx))
}

func TestNextAfterClose(t *testing.T) {
	freePortRange(t)
	srv := NewServer()
	if err := srv.Start(context.Background()); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	require.NoError(t, srv.Close())
	_, err := srv.Next(context.Background())
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestPortRange(t *testing.T) {
	t.Setenv(PortStartEnvVar, "")
	t.Setenv(PortEndEnvVar, "")
	start, end := PortRange()
	assert.Equal(t, 49500, start)
	assert.Equal(t, 49550, end)

	t.Setenv(PortStartEnvVar, "80")
	t.Setenv(PortEndEnvVar, "70000")
	start, end = PortRange()
	assert.Equal(t, 1024, start)
	assert.Equal(t, 65535, end)

	t.Setenv(PortStartEnvVar, "50010")
	t.Setenv(PortEndEnvVar, "50000")
	start, end = PortRange()
	assert.Equal(t, 50000, start)
	assert.Equal(t, 50010, end)
}

func TestDetectIgnoresForeignListener(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer lis.Close()
	go func() {
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			_, _ = c.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
			_ = c.Close()
		}
	}()
	port := lis.Addr().(*net.TCPAddr).Port
	t.Setenv("SINGLEINSTANCE_PORT_START", fmt.Sprint(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", fmt.Sprint(port))

	_, ok := DetectResidentPort(context.Background())
	assert.False(t, ok)
}

func TestSilentClientDoesNotStallDelegation(t *testing.T) {
	port := freePortRange(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer srv.Close()

	silent, err := net.Dial("tcp", portAddr(port))
	require.NoError(t, err)
	defer silent.Close()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		_, err := NewClient().Delegate(ctx, ActionToggle)
		errCh <- err
	}()

	conn, err := srv.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionToggle, conn.Request().Action)
	require.NoError(t, conn.RespondOK())
	require.NoError(t, conn.Close())
	require.NoError(t, <-errCh)
	assert.Less(t, time.Since(start), handshakeWindow, "delegation waited for the silent client")
}
