package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"
)

const delegateTimeout = 2 * time.Second

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) Delegate(ctx context.Context, action Action) (bool, error) {
	ctx, cancel := withFallbackDeadline(ctx, delegateTimeout)
	defer cancel()

	start, end := PortRange()
	for port := start; port <= end; port++ {
		addr := portAddr(port)
		if !probe(ctx, addr, delegateTimeout) {
			continue
		}
		return true, send(ctx, addr, action)
	}
	return false, nil
}

func send(ctx context.Context, addr string, action Action) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(action) + "\n"); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return err
	}
	switch status {
	case okResponse:
		return nil
	case errorResponse:
		msg, _ := io.ReadAll(br)
		return errors.New(string(msg))
	default:
		return errors.New("unexpected resident response: " + strconv.Quote(status))
	}
}
