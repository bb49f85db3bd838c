package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/mkxl/lean-lsp-gateway/internal/lspsession"
	"github.com/mkxl/lean-lsp-gateway/internal/sessionset"
)

// locationJSON mirrors spec.md §6's `location` body/query field.
type locationJSON struct {
	Filepath  string `json:"filepath"`
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

func (l locationJSON) toLocation() lspsession.Location {
	return lspsession.Location{Path: l.Filepath, Line: l.Line, Character: l.Character}
}

// querySessionID parses the optional ?session_id= query parameter.
func querySessionID(r *http.Request) (*ulid.ULID, error) {
	raw := r.URL.Query().Get("session_id")
	if raw == "" {
		return nil, nil
	}
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func sessionStatusJSON(st lspsession.Status) sessionset.SessionStatus {
	out := sessionset.SessionStatus{ID: st.SessionID}
	out.Process.IsFinished = st.ProcessFinished
	return out
}

func (g *Gateway) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LeanPath             string `json:"lean_path"`
		LeanServerLogDirpath string `json:"lean_server_log_dirpath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, err)
		return
	}

	sess, err := g.sessions.NewSession(r.Context(), body.LeanPath, body.LeanServerLogDirpath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		SessionID string `json:"session_id"`
	}{SessionID: sess.ID.String()})
}

func (g *Gateway) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	id, err := querySessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var statuses []sessionset.SessionStatus

	if id != nil {
		sess, err := g.sessions.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		st, err := sess.GetStatus(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		statuses = append(statuses, sessionStatusJSON(st))
	} else {
		all, err := g.sessions.GetSessions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		for _, sess := range all {
			st, err := sess.GetStatus(r.Context())
			if err != nil {
				continue
			}
			statuses = append(statuses, sessionStatusJSON(st))
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Sessions []sessionset.SessionStatus `json:"sessions"`
	}{Sessions: statuses})
}

func (g *Gateway) handleKillSession(w http.ResponseWriter, r *http.Request) {
	id, err := querySessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := g.sessions.Kill(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// resolveSession is the common "body carries an optional session_id,
// resolve it via implicit-session rules" path every /session/file/*
// handler uses.
func (g *Gateway) resolveSession(ctx context.Context, rawID string) (*lspsession.Session, error) {
	var id *ulid.ULID
	if rawID != "" {
		parsed, err := ulid.ParseStrict(rawID)
		if err != nil {
			return nil, err
		}
		id = &parsed
	}
	return g.sessions.GetSession(ctx, id)
}

func (g *Gateway) handleOpenFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID    string `json:"session_id"`
		LeanFilepath string `json:"lean_filepath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	sess, err := g.resolveSession(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sess.OpenFile(r.Context(), body.LeanFilepath); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (g *Gateway) handleChangeFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID    string `json:"session_id"`
		LeanFilepath string `json:"lean_filepath"`
		Text         string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	sess, err := g.resolveSession(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sess.ChangeFile(r.Context(), body.LeanFilepath, body.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (g *Gateway) handleCloseFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID    string `json:"session_id"`
		LeanFilepath string `json:"lean_filepath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	sess, err := g.resolveSession(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sess.CloseFile(r.Context(), body.LeanFilepath); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (g *Gateway) handleHover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string       `json:"session_id"`
		Location  locationJSON `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	sess, err := g.resolveSession(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := sess.Hover(r.Context(), body.Location.toLocation())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Result json.RawMessage `json:"result"`
	}{Result: result})
}

func (g *Gateway) handleGetPlainGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := querySessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	line, err := strconv.ParseUint(q.Get("line"), 10, 32)
	if err != nil {
		writeError(w, err)
		return
	}
	character, err := strconv.ParseUint(q.Get("character"), 10, 32)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := g.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	loc := lspsession.Location{Path: q.Get("filepath"), Line: uint32(line), Character: uint32(character)}
	result, err := sess.GetPlainGoals(r.Context(), loc)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Result *lspsession.PlainGoals `json:"result"`
	}{Result: result})
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := g.sessions.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleNotifications streams the session's notifications as
// newline-delimited JSON, filtered by the optional ?methods= set
// (spec.md §6).
func (g *Gateway) handleNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := querySessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := g.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var methods map[string]bool
	if raw := r.URL.Query().Get("methods"); raw != "" {
		methods = make(map[string]bool)
		for _, m := range strings.Split(raw, ",") {
			methods[strings.TrimSpace(m)] = true
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errNotStreamable)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	sub := sess.Subscribe()
	ctx := r.Context()
	for {
		n, lag, err := sub.Recv(ctx)
		if err != nil {
			return
		}
		if lag > 0 {
			_, _ = w.Write([]byte(`{"lagged":` + strconv.Itoa(lag) + "}\n"))
			flusher.Flush()
			continue
		}
		if methods != nil && !methods[n.Method] {
			continue
		}
		_, _ = w.Write(append(append([]byte{}, n.Raw...), '\n'))
		flusher.Flush()
	}
}
