package eventloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-assistant/src/analysis"
	"screen-assistant/src/config"
	"screen-assistant/src/encoder"
	"screen-assistant/src/llm"
	"screen-assistant/src/messages"
	"screen-assistant/src/overlay"
	"screen-assistant/src/screenshot"
	"screen-assistant/src/selection"
	"screen-assistant/src/worker"
)

type fakeCapturer struct {
	mu      sync.Mutex
	err     error
	regions []screenshot.Region
}

func (c *fakeCapturer) Capture(ctx context.Context, r screenshot.Region) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions = append(c.regions, r)
	if c.err != nil {
		return nil, c.err
	}
	return image.NewRGBA(image.Rect(0, 0, 20, 20)), nil
}

func (c *fakeCapturer) calls() []screenshot.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]screenshot.Region(nil), c.regions...)
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	answers []analysis.Result
	calls   int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, p encoder.Payload) analysis.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.answers) == 0 {
		return analysis.Text("42")
	}
	r := a.answers[0]
	a.answers = a.answers[1:]
	return r
}

func (a *fakeAnalyzer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type failingEncoder struct{}

func (failingEncoder) Encode(image.Image) (encoder.Payload, error) {
	return encoder.Payload{}, fmt.Errorf("%w: boom", encoder.ErrEncodingFailed)
}

type fakePresenter struct {
	mu       sync.Mutex
	history  []string
	current  overlay.State
	toggles  int
	shutdown int
}

func (p *fakePresenter) Show(s overlay.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, s.Kind.String()+":"+s.Text)
	p.current = s
	return nil
}

func (p *fakePresenter) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toggles++
}

func (p *fakePresenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, "clear")
	p.current = overlay.State{}
}

func (p *fakePresenter) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown++
}

func (p *fakePresenter) state() overlay.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePresenter) events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.history...)
}

type heldTask struct {
	ctx  context.Context
	task worker.Task
}

// heldPool keeps submitted tasks until the test runs them.
type heldPool struct {
	mu       sync.Mutex
	tasks    []heldTask
	reject   bool
	rejected int
}

func (h *heldPool) Submit(ctx context.Context, task worker.Task) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reject {
		h.rejected++
		return false
	}
	h.tasks = append(h.tasks, heldTask{ctx: ctx, task: task})
	return true
}

func (h *heldPool) setReject(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reject = v
}

func (h *heldPool) rejections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rejected
}

func (h *heldPool) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tasks)
}

func (h *heldPool) ctx(i int) context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tasks[i].ctx
}

func (h *heldPool) run(i int) {
	h.mu.Lock()
	t := h.tasks[i]
	h.mu.Unlock()
	t.task(t.ctx)
}

type fakeSelector struct {
	mu        sync.Mutex
	callbacks []selection.Callbacks
	cancels   int
	err       error
}

func (s *fakeSelector) Select(ctx context.Context, cb selection.Callbacks) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.callbacks = append(s.callbacks, cb)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.cancels++
			s.mu.Unlock()
			go cb.OnCancelled()
		})
	}, nil
}

func (s *fakeSelector) opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}

func (s *fakeSelector) cb(i int) selection.Callbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks[i]
}

func (s *fakeSelector) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

type fakeClipboard struct {
	mu     sync.Mutex
	writes []string
}

func (c *fakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, text)
	return nil
}

func (c *fakeClipboard) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

type harness struct {
	loop      *Loop
	capturer  *fakeCapturer
	analyzer  *fakeAnalyzer
	presenter *fakePresenter
	selector  *fakeSelector
	clipboard *fakeClipboard
	busy      chan bool
	done      chan error
}

func newHarness(t *testing.T, mode string, pool Submitter, mutate func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		capturer:  &fakeCapturer{},
		analyzer:  &fakeAnalyzer{},
		presenter: &fakePresenter{},
		selector:  &fakeSelector{},
		clipboard: &fakeClipboard{},
		busy:      make(chan bool, 64),
		done:      make(chan error, 1),
	}
	if pool == nil {
		p := worker.New(2, nil)
		t.Cleanup(p.Close)
		pool = p
	}
	deps := Deps{
		Capturer:  h.capturer,
		Encoder:   encoder.New(encoder.Options{}),
		Analyzer:  h.analyzer,
		Presenter: h.presenter,
		Selector:  h.selector,
		Pool:      pool,
		Clipboard: h.clipboard,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.loop = New(deps, Options{
		CaptureMode:  mode,
		OnBusyChange: func(b bool) { h.busy <- b },
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.done <- h.loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
	})
	return h
}

func (h *harness) waitState(t *testing.T, want overlay.State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.presenter.state() == want }, 2*time.Second, 5*time.Millisecond,
		"want %v, history %v", want, h.presenter.events())
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-h.busy:
			if !b {
				return
			}
		case <-timeout:
			t.Fatal("loop never became idle")
		}
	}
}

func TestFullPipelineShowsAnswer(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, nil)

	require.True(t, h.loop.Post(messages.Trigger{Source: messages.SourceHotkey}))
	h.waitState(t, overlay.ResultState("42"))
	h.waitIdle(t)

	assert.Equal(t, []string{"clear", "placeholder:" + overlay.AnalyzingMessage, "result:42"}, h.presenter.events())
	assert.Equal(t, []screenshot.Region{screenshot.FullDisplay}, h.capturer.calls())
}

func TestMissingCredentialMakesNoNetworkCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := llm.New(llm.Config{Model: "m", Endpoint: srv.URL}, nil)
	h := newHarness(t, config.CaptureModeFull, nil, func(d *Deps) { d.Analyzer = client })

	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ErrorState(analysis.ConfigurationMessage))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPermissionDeniedShowsInstruction(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, nil)
	h.capturer.err = screenshot.ErrPermissionDenied

	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ErrorState(analysis.PermissionMessage))
	h.waitIdle(t)

	assert.Equal(t, 0, h.analyzer.count())
	assert.NotContains(t, h.presenter.events(), "placeholder:"+overlay.AnalyzingMessage)
}

func TestCaptureFailure(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, nil)
	h.capturer.err = fmt.Errorf("%w: display lost", screenshot.ErrCaptureFailed)

	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return h.presenter.state().Kind == overlay.Error }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, h.presenter.state().Text, "Capture failed")
}

func TestEncodingFailure(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, func(d *Deps) { d.Encoder = failingEncoder{} })

	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ErrorState(analysis.EncodingMessage))
	assert.Equal(t, 0, h.analyzer.count())
}

func TestRemoteErrorShown(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, nil)
	h.analyzer.answers = []analysis.Result{analysis.Failure(analysis.RemoteError, "quota exceeded", nil)}

	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ErrorState("Error: quota exceeded"))
}

func TestPreemptionDiscardsStaleResult(t *testing.T) {
	pool := &heldPool{}
	h := newHarness(t, config.CaptureModeFull, pool, nil)
	h.analyzer.answers = []analysis.Result{analysis.Text("first"), analysis.Text("second")}

	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return pool.len() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return pool.len() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, pool.ctx(0).Err(), context.Canceled)
	assert.NoError(t, pool.ctx(1).Err())

	// The abandoned request completes first; its result must be dropped.
	pool.run(0)
	pool.run(1)

	h.waitState(t, overlay.ResultState("second"))
	assert.NotContains(t, h.presenter.events(), "result:first")
	assert.Equal(t, 2, h.analyzer.count())
}

// slowAnalyzer answers only once released, or fails as soon as its request
// is cancelled.
type slowAnalyzer struct {
	release   chan struct{}
	cancelled atomic.Int32
}

func (a *slowAnalyzer) Analyze(ctx context.Context, p encoder.Payload) analysis.Result {
	select {
	case <-ctx.Done():
		a.cancelled.Add(1)
		return analysis.Failure(analysis.NetworkError, "request failed", ctx.Err())
	case <-a.release:
		return analysis.Text("latest")
	}
}

func TestRepeatedPreemptionNeverReportsBusy(t *testing.T) {
	analyzer := &slowAnalyzer{release: make(chan struct{})}
	h := newHarness(t, config.CaptureModeFull, nil, func(d *Deps) { d.Analyzer = analyzer })

	const triggers = 6
	for i := 1; i <= triggers; i++ {
		require.True(t, h.loop.Post(messages.Trigger{Source: messages.SourceHotkey}))
		require.Eventually(t, func() bool {
			n := 0
			for _, e := range h.presenter.events() {
				if strings.HasPrefix(e, "placeholder:") {
					n++
				}
			}
			return n == i
		}, 2*time.Second, 5*time.Millisecond)
	}

	for _, e := range h.presenter.events() {
		assert.False(t, strings.HasPrefix(e, "error:"), "unexpected %q in %v", e, h.presenter.events())
	}
	assert.Eventually(t, func() bool { return analyzer.cancelled.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	close(analyzer.release)
	h.waitState(t, overlay.ResultState("latest"))
	h.waitIdle(t)
}

func TestAbandonedJobsDrainBeforeBusy(t *testing.T) {
	pool := &heldPool{}
	h := newHarness(t, config.CaptureModeFull, pool, nil)
	h.analyzer.answers = []analysis.Result{analysis.Text("stale"), analysis.Text("fresh")}

	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return pool.len() == 1 }, 2*time.Second, 5*time.Millisecond)

	// The pool is saturated by the abandoned job, so the new one has to wait.
	pool.setReject(true)
	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return pool.rejections() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.waitState(t, overlay.PlaceholderState(overlay.AnalyzingMessage))

	pool.setReject(false)
	pool.run(0)
	require.Eventually(t, func() bool { return pool.len() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, pool.ctx(1).Err())

	pool.run(1)
	h.waitState(t, overlay.ResultState("fresh"))
	assert.NotContains(t, h.presenter.events(), "error:Error: "+BusyMessage)
}

func TestPoolFullShowsBusy(t *testing.T) {
	pool := &heldPool{reject: true}
	h := newHarness(t, config.CaptureModeFull, pool, nil)

	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ErrorState("Error: "+BusyMessage))
	h.waitIdle(t)
}

func TestRegionSelectedFlow(t *testing.T) {
	h := newHarness(t, config.CaptureModeRegion, nil, nil)

	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return h.selector.opened() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, h.capturer.calls(), "no capture before a region is chosen")

	region := screenshot.Region{X: 100, Y: 100, Width: 200, Height: 200}
	h.selector.cb(0).OnSelected(region)

	h.waitState(t, overlay.ResultState("42"))
	assert.Equal(t, []screenshot.Region{region}, h.capturer.calls())
}

func TestRegionCancelledLeavesOverlayHidden(t *testing.T) {
	h := newHarness(t, config.CaptureModeRegion, nil, nil)

	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return h.selector.opened() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.selector.cb(0).OnCancelled()
	h.waitIdle(t)

	assert.Equal(t, []string{"clear"}, h.presenter.events())
	assert.Empty(t, h.capturer.calls())
	assert.Equal(t, 0, h.analyzer.count())
}

func TestTriggerDuringSelectionCancelsIt(t *testing.T) {
	h := newHarness(t, config.CaptureModeRegion, nil, nil)

	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return h.selector.opened() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.loop.Post(messages.Trigger{})
	require.Eventually(t, func() bool { return h.selector.opened() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.selector.cancelCount())

	// The first selection's late callback is stale.
	h.selector.cb(0).OnSelected(screenshot.Region{X: 0, Y: 0, Width: 50, Height: 50})
	second := screenshot.Region{X: 10, Y: 10, Width: 300, Height: 300}
	h.selector.cb(1).OnSelected(second)

	h.waitState(t, overlay.ResultState("42"))
	assert.Equal(t, []screenshot.Region{second}, h.capturer.calls())
}

func TestSelectorErrorShowsPermission(t *testing.T) {
	h := newHarness(t, config.CaptureModeRegion, nil, nil)
	h.selector.err = screenshot.ErrPermissionDenied

	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ErrorState(analysis.PermissionMessage))
}

func TestToggleForwardsToPresenter(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, nil)
	h.loop.Post(messages.ToggleOverlay{})
	require.Eventually(t, func() bool {
		h.presenter.mu.Lock()
		defer h.presenter.mu.Unlock()
		return h.presenter.toggles == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCopyLastAnswer(t *testing.T) {
	h := newHarness(t, config.CaptureModeFull, nil, nil)

	h.loop.Post(messages.CopyLastAnswer{})
	h.loop.Post(messages.Trigger{})
	h.waitState(t, overlay.ResultState("42"))
	h.loop.Post(messages.CopyLastAnswer{})

	require.Eventually(t, func() bool { return len(h.clipboard.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"42"}, h.clipboard.all())
}

func TestQuitStopsLoop(t *testing.T) {
	presenter := &fakePresenter{}
	pool := worker.New(1, nil)
	defer pool.Close()
	l := New(Deps{Presenter: presenter, Pool: pool}, Options{})

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	require.True(t, l.Post(messages.Quit{Source: messages.SourceTray}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not quit")
	}
	assert.Equal(t, 1, presenter.shutdown)
}

func TestClassifyCaptureError(t *testing.T) {
	assert.Equal(t, analysis.PermissionDenied, classifyCaptureError(screenshot.ErrPermissionDenied).Kind)
	assert.Equal(t, analysis.CaptureFailed, classifyCaptureError(errors.New("x")).Kind)
	assert.Equal(t, analysis.EncodingFailed, classifyCaptureError(encoder.ErrEncodingFailed).Kind)
}
