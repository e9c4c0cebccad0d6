//go:build !darwin

package screenshot

// Windows and X11 do not gate screen capture behind a user grant.
type platformPermission struct{}

func (platformPermission) Granted() bool { return true }

func (platformPermission) Request() {}
