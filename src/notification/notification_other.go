//go:build !windows

package notification

// Without a native dialog the log entry is the only report.
func showMessageBox(string, string) {}
