//go:build darwin

package gui

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa

#import <Cocoa/Cocoa.h>

static void stealthWindow(void *handle, int excludeCapture, int nonActivating, int onTop) {
	NSWindow *w = (__bridge NSWindow *)handle;
	if (excludeCapture) {
		[w setSharingType:NSWindowSharingNone];
	}
	if (onTop) {
		[w setLevel:NSScreenSaverWindowLevel];
		[w setCollectionBehavior:NSWindowCollectionBehaviorCanJoinAllSpaces |
			NSWindowCollectionBehaviorFullScreenAuxiliary |
			NSWindowCollectionBehaviorStationary];
	}
	if (nonActivating) {
		[w setHidesOnDeactivate:NO];
		[w setIgnoresMouseEvents:NO];
	}
}

static void accessoryPolicy(void) {
	[NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"fyne.io/fyne/v2/driver"
)

func applyNative(ctx any, caps Capabilities) error {
	mc, ok := ctx.(driver.MacWindowContext)
	if !ok {
		return fmt.Errorf("unexpected native context %T", ctx)
	}
	C.stealthWindow(unsafe.Pointer(mc.NSWindow), cbool(caps.ExcludedFromCapture), cbool(caps.NonActivating), cbool(caps.AlwaysOnTop))
	return nil
}

// HideFromDock switches the app to the accessory activation policy so it has
// no dock icon or menu bar. Must run on the main goroutine after startup.
func HideFromDock() {
	C.accessoryPolicy()
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
