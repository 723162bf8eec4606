package netx

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePort grabs an ephemeral port from the kernel and releases it, giving
// a port that is almost certainly free for the probe under test.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// occupy binds the port for the duration of the test.
func occupy(t *testing.T, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
}

// =============================================================================
// FindAvailablePort Tests
// =============================================================================

func TestFindAvailablePort_PreferredFree(t *testing.T) {
	preferred := freePort(t)
	port, err := FindAvailablePort(context.Background(), preferred, 10, "localhost")
	require.NoError(t, err)
	assert.Equal(t, preferred, port)
}

func TestFindAvailablePort_SkipsOccupied(t *testing.T) {
	preferred := freePort(t)
	occupy(t, preferred)

	port, err := FindAvailablePort(context.Background(), preferred, 10, "localhost")
	require.NoError(t, err)
	assert.Greater(t, port, preferred)
	assert.LessOrEqual(t, port, preferred+10)
}

func TestFindAvailablePort_ExhaustsAttempts(t *testing.T) {
	preferred := freePort(t)
	occupy(t, preferred)
	occupy(t, preferred+1)

	_, err := FindAvailablePort(context.Background(), preferred, 2, "localhost")
	assert.ErrorIs(t, err, ErrNoPortAvailable)
}

func TestFindAvailablePort_NeverBelow1024(t *testing.T) {
	// Scanning from port 1 must skip the privileged range without burning
	// attempts, so the first probe lands at 1024 or above.
	port, err := FindAvailablePort(context.Background(), 1, 50, "localhost")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, 1024)
}

func TestFindAvailablePort_StopsAtMaxPort(t *testing.T) {
	occupy(t, MaxPort)

	_, err := FindAvailablePort(context.Background(), MaxPort, 10, "localhost")
	assert.ErrorIs(t, err, ErrNoPortAvailable)
}

func TestFindAvailablePort_PreferredOutOfRange(t *testing.T) {
	tests := []struct {
		name      string
		preferred int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too high", MaxPort + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindAvailablePort(context.Background(), tt.preferred, 10, "localhost")
			assert.ErrorIs(t, err, ErrNoPortAvailable)
		})
	}
}

func TestFindAvailablePort_Defaults(t *testing.T) {
	// Zero maxAttempts and empty host fall back to the package defaults.
	preferred := freePort(t)
	port, err := FindAvailablePort(context.Background(), preferred, 0, "")
	require.NoError(t, err)
	assert.Equal(t, preferred, port)
}
