// Package hotkey watches global keyboard events and fires callbacks for
// configured key combinations.
package hotkey

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// Binding ties a combination such as "Cmd+Alt+S" to a callback.
type Binding struct {
	Name    string
	Combo   string
	OnPress func()
}

type compiled struct {
	name    string
	combo   string
	keys    [][]uint16 // one entry per key, each listing its rawcode variants
	onPress func()
	latched bool // fired and waiting for one of its keys to be released
}

// Listener dispatches key events to bindings. Callbacks run on the hook
// goroutine and must not block.
type Listener struct {
	mu       sync.Mutex
	bindings []*compiled
	pressed  map[uint16]bool
	logger   *zap.Logger
}

// New validates all bindings up front. A combo with an unknown key is an error.
func New(logger *zap.Logger, bindings ...Binding) (*Listener, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Listener{pressed: make(map[uint16]bool), logger: logger}
	for _, b := range bindings {
		if strings.TrimSpace(b.Combo) == "" {
			continue
		}
		c, err := compile(b)
		if err != nil {
			return nil, err
		}
		l.bindings = append(l.bindings, c)
		logger.Info("hotkey registered", zap.String("name", b.Name), zap.String("combo", b.Combo))
	}
	return l, nil
}

func compile(b Binding) (*compiled, error) {
	c := &compiled{name: b.Name, combo: b.Combo, onPress: b.OnPress}
	for _, key := range parseHotkey(b.Combo) {
		codes := keyNameToRawcodes(key)
		if len(codes) == 0 {
			return nil, fmt.Errorf("hotkey %s: unknown key %q in %q", b.Name, key, b.Combo)
		}
		c.keys = append(c.keys, codes)
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("hotkey %s: empty combination", b.Name)
	}
	return c, nil
}

// Start begins listening and returns immediately. The hook is torn down when
// ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	if len(l.bindings) == 0 {
		return nil
	}
	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("hotkey: gohook.Start returned nil channel")
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("panic in hotkey goroutine", zap.Any("panic", r))
			}
		}()
		for {
			select {
			case <-ctx.Done():
				gohook.End()
				return
			case ev, ok := <-evChan:
				if !ok {
					l.logger.Info("hook event channel closed")
					return
				}
				l.handle(ev)
			}
		}
	}()
	return nil
}

func (l *Listener) handle(ev gohook.Event) {
	switch ev.Kind {
	case gohook.KeyDown:
		l.keyDown(ev.Rawcode)
	case gohook.KeyUp:
		l.keyUp(ev.Rawcode)
	}
}

func (l *Listener) keyDown(code uint16) {
	l.mu.Lock()
	l.pressed[code] = true
	var fire []*compiled
	for _, b := range l.bindings {
		if !b.latched && l.allPressed(b) {
			b.latched = true
			fire = append(fire, b)
		}
	}
	l.mu.Unlock()

	for _, b := range fire {
		l.logger.Debug("hotkey combination detected", zap.String("name", b.name), zap.String("combo", b.combo))
		if b.onPress != nil {
			b.onPress()
		}
	}
}

func (l *Listener) keyUp(code uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pressed, code)
	for _, b := range l.bindings {
		if b.latched && uses(b, code) {
			b.latched = false
		}
	}
}

func (l *Listener) allPressed(b *compiled) bool {
	for _, variants := range b.keys {
		down := false
		for _, c := range variants {
			if l.pressed[c] {
				down = true
				break
			}
		}
		if !down {
			return false
		}
	}
	return true
}

func uses(b *compiled, code uint16) bool {
	for _, variants := range b.keys {
		for _, c := range variants {
			if c == code {
				return true
			}
		}
	}
	return false
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "option", "opt":
			keys = append(keys, "alt")
		case "win", "cmd", "command", "super", "meta":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// keyNameToRawcodes maps a normalized key name to the platform rawcodes gohook
// reports for it. Modifiers list both left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if codes, ok := modifierCodes[keyName]; ok {
		return codes
	}
	if codes, ok := specialCodes[keyName]; ok {
		return codes
	}
	if len(keyName) == 1 {
		ch := keyName[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return []uint16{letterCode(ch)}
		case ch >= '0' && ch <= '9':
			return []uint16{digitCode(ch)}
		}
	}
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && fmt.Sprintf("f%d", n) == keyName {
		if code, ok := functionCode(n); ok {
			return []uint16{code}
		}
	}
	return nil
}
