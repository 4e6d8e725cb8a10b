//go:build windows

package ipc

import (
	"fmt"
	"net"
	"time"
)

// CreatePlatformListener listens on TCP localhost; socketPath is ignored on Windows
func CreatePlatformListener(socketPath string) (net.Listener, error) {
	listener, err := net.Listen("tcp", DefaultTCPPort)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", DefaultTCPPort, err)
	}
	return listener, nil
}

// ConnectPlatform dials the server over TCP localhost
func ConnectPlatform(socketPath string) (net.Conn, error) {
	return net.DialTimeout("tcp", DefaultTCPPort, time.Second)
}

// GetPlatformAddress returns the address string for logging
func GetPlatformAddress(socketPath string) string {
	return DefaultTCPPort + " (TCP localhost - Windows mode)"
}

func removePlatformSocket(string) {}
