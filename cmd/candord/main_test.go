package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// freePort reserves an ephemeral port and releases it for the daemon
// under test.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

// The catalog watcher blocks until its context is done, so run must
// not invoke it inline: with watch enabled the daemon still has to
// reach the listen call and serve requests.
func TestRunServesWithCatalogWatchEnabled(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	dir := filepath.Join(tmp, ".config", "candor")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}

	catalogPath := filepath.Join(dir, "patterns.yaml")
	if err := os.WriteFile(catalogPath, []byte("frustration:\n  - frustrated\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	port := freePort(t)
	cfgYAML := fmt.Sprintf(`server:
  host: 127.0.0.1
  port: %d
logging:
  level: warn
patterns:
  path: %s
  watch: true
`, port, catalogPath)
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfgPath) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	deadline := time.Now().Add(5 * time.Second)
	healthy := false
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				healthy = true
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !healthy {
		t.Fatal("daemon never served /health with catalog watch enabled")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("run returned: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
