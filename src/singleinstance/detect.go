package singleinstance

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"time"
)

// probeTimeout bounds a handshake when ctx carries no deadline.
const probeTimeout = 300 * time.Millisecond

// DetectResidentPort returns the first port in the range whose listener
// answers PING with PONG.
func DetectResidentPort(ctx context.Context) (int, bool) {
	start, end := PortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if probe(ctx, portAddr(port), probeTimeout) {
			return port, true
		}
	}
	return 0, false
}

func portAddr(port int) string {
	return net.JoinHostPort(residentHost, strconv.Itoa(port))
}

// probe reports whether addr speaks the resident handshake.
func probe(ctx context.Context, addr string, fallback time.Duration) bool {
	ctx, cancel := withFallbackDeadline(ctx, fallback)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

func withFallbackDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
