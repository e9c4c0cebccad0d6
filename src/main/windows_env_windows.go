//go:build windows

package main

import (
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

const (
	processPerMonitorDPIAware = 2

	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smCMonitors       = 80
)

var (
	shcore                     = windows.NewLazySystemDLL("Shcore.dll")
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
	procSetProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
)

// enableDPIAwareness makes capture and selection coordinates physical pixels.
// It must run before any window is created.
func enableDPIAwareness() {
	logger := zap.L().Named("dpi")
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := procSetProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			logger.Debug("per-monitor DPI awareness enabled")
		} else {
			logger.Debug("SetProcessDpiAwareness failed", zap.Uintptr("hresult", ret))
		}
		return
	}

	if err := procSetProcessDPIAware.Find(); err == nil {
		ret, _, _ := procSetProcessDPIAware.Call()
		logger.Debug("system DPI awareness fallback", zap.Bool("ok", ret != 0))
		return
	}
	logger.Warn("no DPI awareness API available")
}

func logMonitorConfiguration(logger *zap.Logger) {
	metric := func(index int) int {
		ret, _, _ := procGetSystemMetrics.Call(uintptr(index))
		return int(int32(ret))
	}
	logger.Info("monitor configuration",
		zap.Int("monitors", metric(smCMonitors)),
		zap.Int("virtual_x", metric(smXVirtualScreen)),
		zap.Int("virtual_y", metric(smYVirtualScreen)),
		zap.Int("virtual_w", metric(smCXVirtualScreen)),
		zap.Int("virtual_h", metric(smCYVirtualScreen)),
	)
}
