// Package notification reports startup problems that happen before the
// overlay exists, such as a second resident or an invalid hotkey.
package notification

import (
	"go.uber.org/zap"
)

// ShowBlockingError logs the failure and, where the platform has a native
// message box, shows it and waits for the user to dismiss it.
func ShowBlockingError(title, message string) {
	zap.L().Error(title, zap.String("detail", message))
	showMessageBox(title, message)
}
