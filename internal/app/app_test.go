package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powplant/config"
	"powplant/internal/server/ws"
)

func freeAddr(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String(), l.Addr().(*net.TCPAddr).Port
}

func writeServerConfig(t *testing.T, port int, metricsAddr string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yml")
	body := fmt.Sprintf(`
server:
  name: test
  host: 127.0.0.1
  port: %d
  max_connections: 4
  shutdown_timeout: 1s
pow:
  max_difficulty: 8
  workers: 2
metrics:
  addr: %q
log:
  level: error
`, port, metricsAddr)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunServerAndClient(t *testing.T) {
	addr, port := freeAddr(t)
	metricsAddr, _ := freeAddr(t)
	path := writeServerConfig(t, port, metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunServer(ctx, path) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	t.Setenv("SERVER_ADDR", addr)
	t.Setenv("NAME", "test-client")
	t.Setenv("TARGET_POW", "100")
	t.Setenv("MIN_POW", "8")
	t.Setenv("REQUESTS", "2")
	t.Setenv("LOG_LEVEL", "error")
	require.NoError(t, RunClient(context.Background(), ""))

	resp, err := http.Get("http://" + metricsAddr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `powplant_pow_requests_total{outcome="ok"} 2`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunServerBindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	path := writeServerConfig(t, occupied.Addr().(*net.TCPAddr).Port, "")

	err = RunServer(context.Background(), path)
	assert.ErrorIs(t, err, ws.ErrBindFailure)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.Log{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), -4))

	_, err = newLogger(config.Log{Level: "verbose"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
