package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
	"github.com/mkxl/lean-lsp-gateway/internal/sessionset"
)

func quietLake(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake lake script is POSIX-shell only")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\nwhile read -r _; do :; done\n"
	path := filepath.Join(dir, "lake")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newLeanProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lake-manifest.json"), []byte("{}"), 0o644))
	leanFile := filepath.Join(dir, "Foo.lean")
	require.NoError(t, os.WriteFile(leanFile, []byte("example : 1 + 1 = 2 := rfl"), 0o644))
	return leanFile
}

func newTestServer(t *testing.T) (*httptest.Server, *sessionset.SessionSet) {
	quietLake(t)
	log := logging.New(io.Discard, "")
	ss := sessionset.New(log)
	t.Cleanup(ss.Close)
	g := New(ss, log)
	return httptest.NewServer(g.Router()), ss
}

func TestNewSessionAndGetSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"lean_path": newLeanProject(t)})
	resp, err := http.Post(srv.URL+"/session/new", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.SessionID)

	getResp, err := http.Get(srv.URL + "/session")
	require.NoError(t, err)
	defer getResp.Body.Close()

	var got struct {
		Sessions []struct {
			ID      string `json:"id"`
			Process struct {
				IsFinished bool `json:"is_finished"`
			} `json:"process"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, created.SessionID, got.Sessions[0].ID)
	assert.False(t, got.Sessions[0].Process.IsFinished)
}

func TestNewSessionNoManifestReturnsError(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"lean_path": filepath.Join(t.TempDir(), "Foo.lean")})
	resp, err := http.Post(srv.URL+"/session/new", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st struct {
		SessionSet struct {
			IsFinished bool `json:"is_finished"`
		} `json:"session_set"`
		Sessions []any `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.False(t, st.SessionSet.IsFinished)
}

func TestDeleteSessionAmbiguousWithNoSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/session", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestOpenFileRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	leanFile := newLeanProject(t)
	body, _ := json.Marshal(map[string]string{"lean_path": leanFile})
	resp, err := http.Post(srv.URL+"/session/new", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	time.Sleep(50 * time.Millisecond) // let the session actor finish spawning

	openBody, _ := json.Marshal(map[string]string{"lean_filepath": leanFile})
	openResp, err := http.Post(srv.URL+"/session/file/open", "application/json", bytes.NewReader(openBody))
	require.NoError(t, err)
	defer openResp.Body.Close()
	assert.Equal(t, http.StatusOK, openResp.StatusCode)
}
