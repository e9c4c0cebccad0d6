// Package singleinstance keeps one resident process per user session and
// lets later invocations forward actions (trigger, toggle, quit) to it over
// loopback TCP.
package singleinstance

import (
	"context"
	"fmt"
	"strings"
)

// Action is a user action forwarded to the resident.
type Action string

const (
	ActionTrigger Action = "TRIGGER"
	ActionToggle  Action = "TOGGLE"
	ActionQuit    Action = "QUIT"
)

// ParseAction accepts an action name in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionTrigger, ActionToggle, ActionQuit:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Server owns the TCP endpoint and receives delegated actions.
type Server interface {
	// Start binds the first port of the configured range and begins accepting clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection, or the ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn is one delegated request awaiting a reply.
type Conn interface {
	Request() Request
	RespondOK() error
	RespondError(msg string) error
	Close() error
}

type Request struct {
	Action Action
}

// Client forwards actions to a resident server.
type Client interface {
	// Delegate scans the port range, performs the PING/PONG handshake and sends
	// the action. If no resident is found it returns delegated=false, err=nil.
	Delegate(ctx context.Context, action Action) (delegated bool, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
