package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// wsEnvelope is one client text frame, per spec.md §6: a `type` tag
// plus type-specific fields. Grounded on
// original_source/src/stream.rs's dispatch-by-type loop.
type wsEnvelope struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id"`
	Filepath  string       `json:"filepath"`
	Text      string       `json:"text"`
	Location  locationJSON `json:"location"`

	LeanPath             string `json:"lean_path"`
	LeanServerLogDirpath string `json:"lean_server_log_dirpath"`
}

func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("gateway: websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.writeWSJSON(conn, map[string]any{"error": "malformed message"})
			continue
		}

		resp := g.dispatchWS(r.Context(), env)
		g.writeWSJSON(conn, resp)
	}
}

func (g *Gateway) writeWSJSON(conn *websocket.Conn, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, body)
}

// dispatchWS implements spec.md §6's WebSocket envelope contract: each
// `type` maps to one session/session-set operation and a server frame
// keyed by the verb; an unknown type yields {"error":"unknown type"}.
func (g *Gateway) dispatchWS(ctx context.Context, env wsEnvelope) map[string]any {
	var sessionID *ulid.ULID
	if env.SessionID != "" {
		id, err := ulid.ParseStrict(env.SessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		sessionID = &id
	}

	switch env.Type {
	case "new_session":
		sess, err := g.sessions.NewSession(ctx, env.LeanPath, env.LeanServerLogDirpath)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"session_id": sess.ID.String()}

	case "get_sessions":
		sessions, err := g.sessions.GetSessions(ctx)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		ids := make([]string, 0, len(sessions))
		for _, s := range sessions {
			ids = append(ids, s.ID.String())
		}
		return map[string]any{"session_ids": ids}

	case "get_session":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"session_id": sess.ID.String()}

	case "initialize":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		if err := sess.Initialize(ctx); err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"initialize": "complete"}

	case "open_file":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		if err := sess.OpenFile(ctx, env.Filepath); err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"open_file": "complete"}

	case "close_file":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		if err := sess.CloseFile(ctx, env.Filepath); err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"close_file": "complete"}

	case "hover_file":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		result, err := sess.Hover(ctx, env.Location.toLocation())
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"result": json.RawMessage(result)}

	case "get_plain_goals":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		result, err := sess.GetPlainGoals(ctx, env.Location.toLocation())
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"result": result}

	case "get_status":
		sess, err := g.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		st, err := sess.GetStatus(ctx)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"session_id": st.SessionID, "process": map[string]any{"is_finished": st.ProcessFinished}}

	default:
		return map[string]any{"error": "unknown type"}
	}
}
