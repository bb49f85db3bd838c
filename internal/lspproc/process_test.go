package lspproc

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
)

// fakeLakeServe installs a tiny shell script named "lake" on PATH that
// echoes back one Content-Length framed reply for whatever it
// receives on stdin, then exits. This exercises Spawn/pump without
// needing a real Lean toolchain.
func fakeLakeServe(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake lake script is POSIX-shell only")
	}

	dir := t.TempDir()
	script := `#!/bin/sh
read -r _
read -r _
body='{"jsonrpc":"2.0","id":1,"result":{}}'
printf 'Content-Length: %d\r\n\r\n%s' ${#body} "$body"
`
	path := filepath.Join(dir, "lake")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestSpawnPumpsOneFrame(t *testing.T) {
	fakeLakeServe(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logging.New(io.Discard, "")
	proc, err := Spawn(ctx, t.TempDir(), "", log)
	require.NoError(t, err)

	proc.Input() <- []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`)

	select {
	case frame, ok := <-proc.Output():
		require.True(t, ok)
		require.True(t, bytes.Contains(frame, []byte(`"id":1`)))
	case <-time.After(4 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSpawnMissingExecutable(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	ctx := context.Background()
	log := logging.New(io.Discard, "")
	_, err := Spawn(ctx, t.TempDir(), "", log)
	require.Error(t, err)
}

func TestExpandEnvOverride(t *testing.T) {
	t.Setenv("LSPPROC_TEST_ROOT", "/tmp/workspace")

	require.Equal(t, "/tmp/workspace/lean-logs", expandEnvOverride("${LSPPROC_TEST_ROOT}/lean-logs"))
	require.Equal(t, "${LSPPROC_TEST_UNSET}/lean-logs", expandEnvOverride("${LSPPROC_TEST_UNSET}/lean-logs"))
	require.Equal(t, "/var/log/lean", expandEnvOverride("/var/log/lean"))
}

func TestUnboundedQueueDoesNotBlockSendBehindSlowReader(t *testing.T) {
	q := newUnboundedQueue()
	defer q.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.In() <- []byte{byte(i)}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sends blocked with no reader draining Out")
	}

	for i := 0; i < 100; i++ {
		select {
		case v := <-q.Out():
			require.Equal(t, []byte{byte(i)}, v)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out draining queued values")
		}
	}
}

func TestUnboundedQueueStopClosesOut(t *testing.T) {
	q := newUnboundedQueue()
	q.Stop()

	select {
	case _, ok := <-q.Out():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Out never closed after Stop")
	}
}
