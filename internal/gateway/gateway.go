// Package gateway implements the HTTP/WebSocket façade spec.md §6
// describes as an external collaborator to the session runtime. It is
// a thin translation layer: every handler resolves a session via
// internal/sessionset and calls straight through to the session's
// exported command methods, forwarding LSP results verbatim as JSON
// (spec.md §1's non-goal: the gateway never interprets payload
// semantics). Routes and the WebSocket envelope are grounded on
// original_source/src/server.rs and src/stream.rs.
package gateway

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
	"github.com/mkxl/lean-lsp-gateway/internal/sessionset"
)

// DefaultPort is the gateway's default listening port, matching
// original_source's Server::DEFAULT_PORT.
const DefaultPort = 8080

// Gateway holds the one session-set actor the façade forwards to.
type Gateway struct {
	sessions *sessionset.SessionSet
	log      logging.Logger
	upgrader websocket.Upgrader
}

// New builds a Gateway over an already-running session set.
func New(sessions *sessionset.SessionSet, log logging.Logger) *Gateway {
	return &Gateway{
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router builds the *mux.Router exposing spec.md §6's route table.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/session/new", g.handleNewSession).Methods(http.MethodPost)
	r.HandleFunc("/session", g.handleGetSessions).Methods(http.MethodGet)
	r.HandleFunc("/session", g.handleKillSession).Methods(http.MethodDelete)
	r.HandleFunc("/session/file/open", g.handleOpenFile).Methods(http.MethodPost)
	r.HandleFunc("/session/file/change", g.handleChangeFile).Methods(http.MethodPost)
	r.HandleFunc("/session/file/close", g.handleCloseFile).Methods(http.MethodPost)
	r.HandleFunc("/session/file/hover", g.handleHover).Methods(http.MethodPost)
	r.HandleFunc("/session/info-view/plain-goals", g.handleGetPlainGoals).Methods(http.MethodGet)
	r.HandleFunc("/session/notifications", g.handleNotifications).Methods(http.MethodGet)
	r.HandleFunc("/status", g.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/stream", g.handleStream).Methods(http.MethodGet)

	return r
}
