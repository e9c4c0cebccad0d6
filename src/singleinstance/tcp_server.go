package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	residentHost    = "127.0.0.1"
	pingRequest     = "PING\n"
	pongResponse    = "PONG\n"
	okResponse      = "OK\n"
	errorResponse   = "ERROR\n"
	handshakeWindow = 3 * time.Second
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	incoming chan *tcpConn
	done     chan struct{}
	once     sync.Once
	port     int
	logger   *zap.Logger
}

func newTcpServer() *tcpServer {
	return &tcpServer{
		incoming: make(chan *tcpConn, 8),
		done:     make(chan struct{}),
		logger:   zap.L().Named("singleinstance"),
	}
}

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start, _ := PortRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Warn("failed to bind", zap.String("addr", addr), zap.Error(err))
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	s.logger.Info("listening", zap.String("addr", lis.Addr().String()))
	go s.acceptLoop(ctx, lis)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		go s.serveConn(ctx, c)
	}
}

// serveConn handshakes one client and queues it for Next. A silent client
// only holds its own goroutine until the handshake deadline.
func (s *tcpServer) serveConn(ctx context.Context, c net.Conn) {
	tc, ok := s.handshake(c)
	if !ok {
		return
	}
	select {
	case s.incoming <- tc:
	case <-s.done:
		_ = c.Close()
	case <-ctx.Done():
		_ = c.Close()
	}
}

// handshake answers PING probes inline and parses action requests.
func (s *tcpServer) handshake(c net.Conn) (*tcpConn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(handshakeWindow))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, err := br.ReadString('\n')
	if err != nil {
		_ = c.Close()
		return nil, false
	}
	if line == pingRequest {
		s.logger.Debug("PING -> PONG", zap.String("remote", remote))
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	}
	action, err := ParseAction(strings.TrimSuffix(line, "\n"))
	if err != nil {
		s.logger.Warn("rejecting request", zap.String("remote", remote), zap.Error(err))
		_, _ = bw.WriteString(errorResponse + err.Error())
		_ = bw.Flush()
		_ = c.Close()
		return nil, false
	}
	s.logger.Info("delegated request", zap.String("remote", remote), zap.String("action", string(action)))
	return &tcpConn{c: c, r: Request{Action: action}, w: bw}, true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		err := s.lis.Close()
		s.lis = nil
		return err
	}
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondOK() error {
	if _, err := tc.w.WriteString(okResponse); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorResponse + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
