// Package netx probes the host network for bindable TCP ports.
package netx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// =============================================================================
// Port Allocation
// =============================================================================

const (
	// DefaultMaxAttempts is the number of candidate ports probed before
	// giving up.
	DefaultMaxAttempts = 100

	// DefaultHost is the interface probed for availability.
	DefaultHost = "localhost"

	// MaxPort is the highest valid TCP port.
	MaxPort = 65535

	// minUnprivilegedPort is the first port not reserved for system
	// services. Lower candidates are skipped without consuming an attempt.
	minUnprivilegedPort = 1024
)

// ErrNoPortAvailable is returned when no bindable port is found within the
// scan bound.
var ErrNoPortAvailable = errors.New("no available port found")

// FindAvailablePort scans consecutive ports starting at preferred and
// returns the first one that accepts a TCP listen bind. Candidates below
// 1024 are skipped without counting against maxAttempts; scanning stops
// with ErrNoPortAvailable once a candidate exceeds 65535.
//
// The probe binds with SO_REUSEADDR and releases the socket immediately, so
// the result is advisory: nothing reserves the port between the probe and
// actual process start, and callers must surface a bind failure at start
// time as its own error.
func FindAvailablePort(ctx context.Context, preferred, maxAttempts int, host string) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if host == "" {
		host = DefaultHost
	}
	if preferred < 1 || preferred > MaxPort {
		return 0, fmt.Errorf("preferred port %d out of range: %w", preferred, ErrNoPortAvailable)
	}

	attempts := 0
	for port := preferred; attempts < maxAttempts; port++ {
		if port > MaxPort {
			return 0, fmt.Errorf("scan from %d exceeded port %d: %w", preferred, MaxPort, ErrNoPortAvailable)
		}
		if port < minUnprivilegedPort {
			continue
		}
		attempts++
		if isPortAvailable(ctx, host, port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in %d attempts from %d: %w", maxAttempts, preferred, ErrNoPortAvailable)
}

// isPortAvailable reports whether a TCP listen bind on (host, port)
// succeeds. The listener is closed immediately.
func isPortAvailable(ctx context.Context, host string, port int) bool {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// reuseAddr enables SO_REUSEADDR on the probe socket so sockets lingering
// in TIME_WAIT do not mask an otherwise free port.
func reuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
