// Package eventloop is the orchestrator: a single goroutine that owns the
// current capture session and the overlay, reacting to user actions and to
// asynchronous analysis results.
package eventloop

import (
	"context"
	"errors"
	"image"
	"time"

	"go.uber.org/zap"

	"screen-assistant/src/analysis"
	"screen-assistant/src/config"
	"screen-assistant/src/encoder"
	"screen-assistant/src/logutil"
	"screen-assistant/src/messages"
	"screen-assistant/src/overlay"
	"screen-assistant/src/screenshot"
	"screen-assistant/src/selection"
	"screen-assistant/src/session"
	"screen-assistant/src/singleinstance"
	"screen-assistant/src/worker"
)

const BusyMessage = "Busy, please retry"

type Capturer interface {
	Capture(ctx context.Context, region screenshot.Region) (*image.RGBA, error)
}

type Presenter interface {
	Show(s overlay.State) error
	Toggle()
	Clear()
	Shutdown()
}

// RegionSelector opens a selection surface. Exactly one callback fires,
// possibly from another goroutine. The returned cancel ends the selection early.
type RegionSelector interface {
	Select(ctx context.Context, cb selection.Callbacks) (cancel func(), err error)
}

type Submitter interface {
	Submit(ctx context.Context, task worker.Task) bool
}

type Clipboard interface {
	Write(text string) error
}

// Deps are the collaborators of the loop. Selector is only needed in region
// mode; Server and Clipboard are optional.
type Deps struct {
	Capturer  Capturer
	Encoder   session.Encoder
	Analyzer  session.Analyzer
	Presenter Presenter
	Selector  RegionSelector
	Pool      Submitter
	Clipboard Clipboard
	Server    singleinstance.Server
	Logger    *zap.Logger
}

type Options struct {
	CaptureMode string
	// SettleDelay lets the compositor remove hidden surfaces before capture.
	SettleDelay time.Duration
	// OnBusyChange is called from the loop goroutine when a session starts or ends.
	OnBusyChange func(busy bool)
}

type job struct {
	ctx  context.Context
	task worker.Task
}

// Loop is the single-threaded coordinator for capture sessions.
type Loop struct {
	deps   Deps
	opts   Options
	logger *zap.Logger

	events  chan messages.Message // lossy user actions
	results chan messages.Message // lossless session progress

	cur          *session.Session
	cancelSelect func()
	cancelJob    context.CancelFunc
	// waiting holds the current session's job while abandoned jobs still
	// occupy the pool; draining counts those abandoned jobs.
	waiting    *job
	draining   int
	lastAnswer string
	busy       bool
	sleep      func(time.Duration)
}

// New creates a loop from its collaborators.
func New(deps Deps, opts Options) *Loop {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.CaptureMode = config.ResolveCaptureMode(opts.CaptureMode)
	return &Loop{
		deps:    deps,
		opts:    opts,
		logger:  logutil.Named(logger, "eventloop"),
		events:  make(chan messages.Message, 4),
		results: make(chan messages.Message, 8),
		sleep:   time.Sleep,
	}
}

// Post delivers a user action. Actions are dropped when the inbox is full,
// mirroring how repeated hotkey presses coalesce.
func (l *Loop) Post(m messages.Message) bool {
	select {
	case l.events <- m:
		return true
	default:
		l.logger.Warn("event dropped, inbox full", zap.String("type", m.Type()))
		return false
	}
}

// deliver hands session progress back to the loop. It blocks until accepted
// or ctx ends so results are never lost.
func (l *Loop) deliver(ctx context.Context, m messages.Message) {
	select {
	case l.results <- m:
	case <-ctx.Done():
	}
}

// Run processes events until Quit is received or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.shutdown()

	if l.deps.Server != nil {
		if err := l.deps.Server.Start(ctx); err != nil {
			return err
		}
		defer l.deps.Server.Close()
		go l.serveDelegates(ctx)
	}

	l.logger.Info("event loop started", zap.String("capture_mode", l.opts.CaptureMode))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-l.events:
			if q, quit := m.(messages.Quit); quit {
				l.logger.Info("quit requested", zap.String("source", string(q.Source)))
				return nil
			}
			l.handle(ctx, m)
		case m := <-l.results:
			l.handle(ctx, m)
		}
	}
}

func (l *Loop) handle(ctx context.Context, m messages.Message) {
	switch msg := m.(type) {
	case messages.Trigger:
		l.handleTrigger(ctx, msg)
	case messages.ToggleOverlay:
		l.deps.Presenter.Toggle()
	case messages.CopyLastAnswer:
		l.handleCopy()
	case messages.RegionSelected:
		l.handleRegionSelected(ctx, msg)
	case messages.RegionCancelled:
		l.handleRegionCancelled(msg)
	case messages.AnalysisDone:
		l.handleAnalysisDone(msg)
	default:
		l.logger.Warn("unhandled message", zap.String("type", m.Type()))
	}
}

func (l *Loop) handleTrigger(ctx context.Context, msg messages.Trigger) {
	if l.cur != nil {
		l.logger.Info("preempting session", zap.String("session", string(l.cur.ID)), zap.Stringer("phase", l.cur.Phase))
		l.abandon()
	}
	l.deps.Presenter.Clear()

	s := session.New()
	l.cur = s
	l.setBusy(true)
	log := l.logger.With(zap.String("session", string(s.ID)), zap.String("source", string(msg.Source)))
	log.Info("session started")

	if l.opts.CaptureMode != config.CaptureModeRegion {
		l.capture(ctx, s, screenshot.FullDisplay)
		return
	}

	_ = s.Advance(session.SelectingRegion)
	if l.deps.Selector == nil {
		l.fail(s, analysis.Fail(analysis.CaptureFailed, "region selection unavailable", nil))
		return
	}
	id := s.ID
	cancelSelect, err := l.deps.Selector.Select(ctx, selection.Callbacks{
		OnSelected: func(r screenshot.Region) {
			l.deliver(ctx, messages.RegionSelected{Session: id, Region: r})
		},
		OnCancelled: func() {
			l.deliver(ctx, messages.RegionCancelled{Session: id})
		},
	})
	if err != nil {
		if errors.Is(err, selection.ErrBusy) {
			l.fail(s, analysis.Fail(analysis.KindUnknown, BusyMessage, err))
			return
		}
		l.fail(s, classifyCaptureError(err))
		return
	}
	l.cancelSelect = cancelSelect
}

func (l *Loop) handleRegionSelected(ctx context.Context, msg messages.RegionSelected) {
	s := l.current(msg.Session)
	if s == nil {
		return
	}
	l.cancelSelect = nil
	s.Region = msg.Region
	l.capture(ctx, s, msg.Region)
}

func (l *Loop) handleRegionCancelled(msg messages.RegionCancelled) {
	s := l.current(msg.Session)
	if s == nil {
		return
	}
	l.cancelSelect = nil
	_ = s.Advance(session.Cancelled)
	l.logger.Info("selection cancelled", zap.String("session", string(s.ID)))
	l.finish()
}

// capture runs capture and encode inline, then dispatches inference.
func (l *Loop) capture(ctx context.Context, s *session.Session, region screenshot.Region) {
	if err := s.Advance(session.Capturing); err != nil {
		l.logger.Error("bad transition", zap.Error(err))
		return
	}
	if l.opts.SettleDelay > 0 {
		l.sleep(l.opts.SettleDelay)
	}

	bitmap, err := l.deps.Capturer.Capture(ctx, region)
	if err != nil {
		l.fail(s, classifyCaptureError(err))
		return
	}
	s.Bitmap = bitmap
	l.show(overlay.PlaceholderState(overlay.AnalyzingMessage))

	_ = s.Advance(session.Encoding)
	payload, err := l.deps.Encoder.Encode(bitmap)
	if err != nil {
		l.fail(s, analysis.Fail(analysis.EncodingFailed, err.Error(), err))
		return
	}
	s.Bitmap = nil
	s.Payload = payload

	_ = s.Advance(session.Awaiting)
	id := s.ID
	analyzer := l.deps.Analyzer
	jobCtx, cancel := context.WithCancel(ctx)
	l.cancelJob = cancel
	j := &job{ctx: jobCtx, task: func(taskCtx context.Context) {
		res := analyzer.Analyze(taskCtx, payload)
		l.deliver(ctx, messages.AnalysisDone{Session: id, Result: res})
	}}
	if l.deps.Pool.Submit(j.ctx, j.task) {
		l.logger.Debug("analysis dispatched", zap.String("session", string(id)), zap.Int("payload_bytes", len(payload.Data)))
		return
	}
	if l.draining > 0 {
		l.waiting = j
		l.logger.Debug("analysis waiting for abandoned jobs", zap.String("session", string(id)), zap.Int("draining", l.draining))
		return
	}
	l.fail(s, analysis.Fail(analysis.KindUnknown, BusyMessage, nil))
}

// drained accounts for one abandoned job returning its worker and hands a
// waiting job to the pool. Once nothing is draining the queue slot is free,
// so a waiting job never fails there.
func (l *Loop) drained() {
	if l.draining > 0 {
		l.draining--
	}
	if l.waiting == nil {
		return
	}
	if l.deps.Pool.Submit(l.waiting.ctx, l.waiting.task) {
		l.waiting = nil
		l.logger.Debug("analysis dispatched", zap.String("session", string(l.cur.ID)))
		return
	}
	if l.draining == 0 {
		l.waiting = nil
		l.fail(l.cur, analysis.Fail(analysis.KindUnknown, BusyMessage, nil))
	}
}

func (l *Loop) handleAnalysisDone(msg messages.AnalysisDone) {
	s := l.current(msg.Session)
	if s == nil {
		l.logger.Debug("discarding stale result", zap.String("session", string(msg.Session)))
		l.drained()
		return
	}
	s.Release()
	if !msg.Result.OK() {
		l.fail(s, msg.Result.Err)
		return
	}
	_ = s.Advance(session.Done)
	l.lastAnswer = msg.Result.Text
	l.show(overlay.ResultState(msg.Result.Text))
	l.logger.Info("session done", zap.String("session", string(s.ID)), zap.String("answer", logutil.SanitizeForLogging(msg.Result.Text)))
	l.finish()
}

func (l *Loop) handleCopy() {
	if l.lastAnswer == "" || l.deps.Clipboard == nil {
		return
	}
	if err := l.deps.Clipboard.Write(l.lastAnswer); err != nil {
		l.logger.Warn("clipboard write failed", zap.Error(err))
	}
}

// current returns the active session if id matches it.
func (l *Loop) current(id session.ID) *session.Session {
	if l.cur == nil || l.cur.ID != id {
		return nil
	}
	return l.cur
}

func (l *Loop) fail(s *session.Session, e *analysis.Error) {
	_ = s.Fail(e.Kind)
	s.Release()
	l.logger.Warn("session failed", zap.String("session", string(s.ID)), zap.Stringer("kind", e.Kind), zap.String("message", e.Message), zap.Error(e.Err))
	l.show(overlay.ErrorState(e.UserMessage()))
	l.finish()
}

// abandon drops the current session and cancels its request. The cancelled
// job still reports back, and that stale result is discarded on arrival.
func (l *Loop) abandon() {
	if l.cancelSelect != nil {
		cancel := l.cancelSelect
		l.cancelSelect = nil
		cancel()
	}
	if l.cancelJob != nil {
		if l.waiting == nil {
			l.draining++
		}
		l.cancelJob()
		l.cancelJob = nil
	}
	l.waiting = nil
	if l.cur != nil {
		_ = l.cur.Advance(session.Cancelled)
		l.cur.Release()
	}
	l.cur = nil
}

func (l *Loop) finish() {
	if l.cancelJob != nil {
		l.cancelJob()
		l.cancelJob = nil
	}
	l.waiting = nil
	l.cur = nil
	l.setBusy(false)
}

func (l *Loop) show(s overlay.State) {
	if err := l.deps.Presenter.Show(s); err != nil {
		l.logger.Error("overlay show failed", zap.Error(err))
	}
}

func (l *Loop) setBusy(b bool) {
	if l.busy == b {
		return
	}
	l.busy = b
	if l.opts.OnBusyChange != nil {
		l.opts.OnBusyChange(b)
	}
}

func (l *Loop) shutdown() {
	l.abandon()
	l.setBusy(false)
	l.deps.Presenter.Shutdown()
}

// serveDelegates turns delegated actions from later invocations into events.
func (l *Loop) serveDelegates(ctx context.Context) {
	for {
		conn, err := l.deps.Server.Next(ctx)
		if err != nil {
			return
		}
		var m messages.Message
		switch conn.Request().Action {
		case singleinstance.ActionTrigger:
			m = messages.Trigger{Source: messages.SourceDelegate}
		case singleinstance.ActionToggle:
			m = messages.ToggleOverlay{Source: messages.SourceDelegate}
		case singleinstance.ActionQuit:
			m = messages.Quit{Source: messages.SourceDelegate}
		}
		if m != nil && l.Post(m) {
			_ = conn.RespondOK()
		} else {
			_ = conn.RespondError(BusyMessage)
		}
		_ = conn.Close()
	}
}

func classifyCaptureError(err error) *analysis.Error {
	switch {
	case errors.Is(err, screenshot.ErrPermissionDenied):
		return analysis.Fail(analysis.PermissionDenied, "screen recording permission not granted", err)
	case errors.Is(err, encoder.ErrEncodingFailed):
		return analysis.Fail(analysis.EncodingFailed, err.Error(), err)
	default:
		return analysis.Fail(analysis.CaptureFailed, err.Error(), err)
	}
}
