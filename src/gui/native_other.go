//go:build !windows && !darwin

package gui

import "errors"

var errUnsupported = errors.New("window capabilities not supported on this platform")

func applyNative(_ any, caps Capabilities) error {
	if caps.ExcludedFromCapture || caps.NonActivating {
		return errUnsupported
	}
	return nil
}

func HideFromDock() {}
