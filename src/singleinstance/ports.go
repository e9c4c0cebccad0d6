package singleinstance

import (
	"os"
	"strconv"
)

const (
	PortStartEnvVar = "SINGLEINSTANCE_PORT_START"
	PortEndEnvVar   = "SINGLEINSTANCE_PORT_END"

	defaultPortStart = 49500
	defaultPortEnd   = 49550
)

// PortRange returns the inclusive TCP port range the resident may bind and
// clients scan. Invalid values fall back to defaults; the result is clamped
// to [1024, 65535].
func PortRange() (start, end int) {
	start = envPort(PortStartEnvVar, defaultPortStart)
	end = envPort(PortEndEnvVar, defaultPortEnd)
	start = max(start, 1024)
	end = min(end, 65535)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func envPort(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
