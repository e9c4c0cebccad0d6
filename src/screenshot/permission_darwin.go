//go:build darwin

package screenshot

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>
*/
import "C"

type platformPermission struct{}

func (platformPermission) Granted() bool { return bool(C.CGPreflightScreenCaptureAccess()) }

func (platformPermission) Request() { C.CGRequestScreenCaptureAccess() }
