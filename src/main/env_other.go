//go:build !windows

package main

import (
	"image"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

func enableDPIAwareness() {}

func logMonitorConfiguration(logger *zap.Logger) {
	n := screenshot.NumActiveDisplays()
	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, screenshot.GetDisplayBounds(i))
	}
	logger.Info("monitor configuration", zap.Int("monitors", n), zap.Stringers("displays", bounds))
}
