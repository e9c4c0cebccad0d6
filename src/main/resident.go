package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"screen-assistant/src/clipboard"
	"screen-assistant/src/config"
	"screen-assistant/src/eventloop"
	"screen-assistant/src/gui"
	"screen-assistant/src/hotkey"
	"screen-assistant/src/logutil"
	"screen-assistant/src/messages"
	"screen-assistant/src/notification"
	"screen-assistant/src/overlay"
	"screen-assistant/src/runtimeinit"
	"screen-assistant/src/singleinstance"
	"screen-assistant/src/tray"
	"screen-assistant/src/worker"
)

const (
	appID           = "dev.screenassistant"
	shutdownTimeout = 2 * time.Second
)

// poster is the part of the event loop the input sources need.
type poster interface {
	Post(m messages.Message) bool
}

type resident struct {
	rt      *runtimeinit.Runtime
	app     fyne.App
	loop    *eventloop.Loop
	pool    *worker.Pool
	hotkeys *hotkey.Listener
	logger  *zap.Logger
}

func runResident(ctx context.Context, load config.LoadOptions) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: load})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Logger.Sync() }()
	logMonitorConfiguration(rt.Logger)

	probe, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	port, running := singleinstance.DetectResidentPort(probe)
	cancel()
	if running {
		msg := fmt.Sprintf("Screen Assistant is already running (port %d). Use --trigger, --toggle or --quit to control it.", port)
		notification.ShowBlockingError("Screen Assistant", msg)
		return errors.New(msg)
	}

	r, err := newResident(rt, app.NewWithID(appID))
	if err != nil {
		notification.ShowBlockingError("Screen Assistant", err.Error())
		return err
	}
	return r.run(ctx)
}

func newResident(rt *runtimeinit.Runtime, a fyne.App) (*resident, error) {
	cfg := rt.Config
	logger := rt.Logger

	factory := gui.NewFactory(a, logutil.Named(logger, "gui"))
	presenter := overlay.New(gui.NewOverlayFactory(factory), logutil.Named(logger, "overlay"))
	pool := worker.New(cfg.WorkerPoolSize, logutil.Named(logger, "worker"))

	deps := eventloop.Deps{
		Capturer:  rt.Capturer,
		Encoder:   rt.Encoder,
		Analyzer:  rt.Client,
		Presenter: presenter,
		Selector:  gui.NewRegionSelector(factory, rt.Capturer, logutil.Named(logger, "selection")),
		Pool:      pool,
		Server:    singleinstance.NewServer(),
		Logger:    logger,
	}
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable, copy is disabled", zap.Error(err))
	} else {
		deps.Clipboard = clipboard.Writer{}
	}

	loop := eventloop.New(deps, eventloop.Options{
		CaptureMode:  cfg.CaptureMode,
		SettleDelay:  rt.SettleDelay(),
		OnBusyChange: tray.SetBusy,
	})

	hotkeys, err := hotkey.New(logutil.Named(logger, "hotkey"), bindings(cfg, loop)...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("invalid hotkey configuration: %w", err)
	}

	return &resident{
		rt:      rt,
		app:     a,
		loop:    loop,
		pool:    pool,
		hotkeys: hotkeys,
		logger:  logger,
	}, nil
}

func bindings(cfg *config.Config, p poster) []hotkey.Binding {
	return []hotkey.Binding{
		{Name: "capture", Combo: cfg.CaptureHotkey, OnPress: func() { p.Post(messages.Trigger{Source: messages.SourceHotkey}) }},
		{Name: "toggle", Combo: cfg.ToggleHotkey, OnPress: func() { p.Post(messages.ToggleOverlay{Source: messages.SourceHotkey}) }},
		{Name: "quit", Combo: cfg.QuitHotkey, OnPress: func() { p.Post(messages.Quit{Source: messages.SourceHotkey}) }},
	}
}

func trayMenu(p poster, logger *zap.Logger) tray.Menu {
	return tray.Menu{
		OnCapture: func() { p.Post(messages.Trigger{Source: messages.SourceTray}) },
		OnToggle:  func() { p.Post(messages.ToggleOverlay{Source: messages.SourceTray}) },
		OnCopy:    func() { p.Post(messages.CopyLastAnswer{Source: messages.SourceTray}) },
		OnQuit:    func() { p.Post(messages.Quit{Source: messages.SourceTray}) },
		Logger:    logger,
	}
}

func aboutExtra(cfg *config.Config) string {
	return fmt.Sprintf("Model: %s\nCapture: %s\nShow/Hide: %s\nQuit: %s",
		cfg.Model, cfg.CaptureHotkey, cfg.ToggleHotkey, cfg.QuitHotkey)
}

// run blocks on the GUI main loop. The event loop runs on its own goroutine
// and stops the GUI when it returns.
func (r *resident) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var appStopped atomic.Bool
	loopErr := make(chan error, 1)

	r.app.Lifecycle().SetOnStarted(func() {
		gui.HideFromDock()
		tray.SetAboutExtra(aboutExtra(r.rt.Config))
		tray.Start(trayMenu(r.loop, logutil.Named(r.logger, "tray")))

		if err := r.hotkeys.Start(ctx); err != nil {
			r.logger.Error("global hotkeys unavailable", zap.Error(err))
		}

		go func() {
			err := r.loop.Run(ctx)
			loopErr <- err
			if !appStopped.Load() {
				fyne.Do(r.app.Quit)
			}
		}()
		r.logger.Info("Screen Assistant started",
			zap.String("capture_hotkey", r.rt.Config.CaptureHotkey),
			zap.String("capture_mode", r.rt.Config.CaptureMode))
	})

	r.app.Run()
	appStopped.Store(true)
	cancel()
	tray.Quit()

	select {
	case err := <-loopErr:
		r.pool.Close()
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event loop stopped: %w", err)
		}
	case <-time.After(shutdownTimeout):
		r.logger.Warn("event loop did not stop in time")
		return nil
	}
	r.logger.Info("Screen Assistant stopped")
	return nil
}
