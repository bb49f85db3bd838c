package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a thin HTTP client against a running gateway, grounded on
// original_source/src/client.rs's Client{http, port}.
type client struct {
	http *http.Client
	base string
}

func newClient(port uint16) *client {
	return &client{
		http: &http.Client{Timeout: 30 * time.Second},
		base: fmt.Sprintf("http://127.0.0.1:%d", port),
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("lean-lsp-gateway: %s %s: %s: %s", method, path, resp.Status, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type newSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (c *client) newSession(ctx context.Context, leanPath, leanServerLogDirpath string) (newSessionResponse, error) {
	var out newSessionResponse
	body := map[string]string{"lean_path": leanPath, "lean_server_log_dirpath": leanServerLogDirpath}
	err := c.do(ctx, http.MethodPost, "/session/new", body, &out)
	return out, err
}

func (c *client) openFile(ctx context.Context, sessionID, leanFilepath string) error {
	body := map[string]string{"session_id": sessionID, "lean_filepath": leanFilepath}
	return c.do(ctx, http.MethodPost, "/session/file/open", body, nil)
}

type sessionStatusResponse struct {
	ID      string `json:"id"`
	Process struct {
		IsFinished bool `json:"is_finished"`
	} `json:"process"`
}

type getSessionsResponse struct {
	Sessions []sessionStatusResponse `json:"sessions"`
}

func (c *client) getSessions(ctx context.Context, sessionID string) (getSessionsResponse, error) {
	var out getSessionsResponse
	path := "/session"
	if sessionID != "" {
		path += "?session_id=" + sessionID
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

type statusResponse struct {
	SessionSet struct {
		IsFinished bool `json:"is_finished"`
	} `json:"session_set"`
	Sessions []sessionStatusResponse `json:"sessions"`
}

func (c *client) status(ctx context.Context) (statusResponse, error) {
	var out statusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}
