// Package lspsession implements the session actor from spec.md §4.4:
// a per-session state machine owning the subprocess, the pending-
// request table, the open-files version map, and the notifications
// broadcast hub. Grounded directly on spec.md and on
// original_source/src/session_runner.rs (SessionRunner), the canonical
// (newer) revision of the original's session actor.
package lspsession

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
	"github.com/mkxl/lean-lsp-gateway/internal/lspproc"
	"github.com/mkxl/lean-lsp-gateway/internal/lspuri"
	"github.com/mkxl/lean-lsp-gateway/internal/messages"
	"github.com/mkxl/lean-lsp-gateway/internal/requestid"
	"github.com/mkxl/lean-lsp-gateway/internal/watch"
)

// notificationHubCapacity is spec.md §4.4 / §9's chosen capacity: large
// enough that a typical editor's diagnostics+progress bursts fit
// without lagging slow HTTP stream subscribers.
const notificationHubCapacity = 32

// Session is the actor: a subprocess, a factory, a command channel,
// and a notifications hub. All mutable state (pending table, open
// files) lives only inside run's local variables — nothing here is
// touched concurrently from outside the run loop, per spec.md §4.6.
type Session struct {
	ID         ulid.ULID
	ProjectDir string

	proc    *lspproc.Process
	factory *messages.Factory
	watcher *watch.Watcher

	commands chan command
	hub      *notificationHub

	log  logging.Logger
	done chan struct{}

	procFinished bool // only ever touched inside run()
}

// New spawns the subprocess and starts the session actor's run loop.
// projectDir must already be absolutized by the caller (the
// session-set actor resolves and validates it before calling New).
func New(ctx context.Context, id ulid.ULID, projectDir, leanServerLogDir string, log logging.Logger) (*Session, error) {
	proc, err := lspproc.Spawn(ctx, projectDir, leanServerLogDir, log)
	if err != nil {
		return nil, fmt.Errorf("lspsession: spawn subprocess: %w", err)
	}

	entropy := ulid.Monotonic(rand.New(rand.NewSource(int64(id.Time()))), 0)

	s := &Session{
		ID:         id,
		ProjectDir: projectDir,
		proc:       proc,
		factory:    messages.NewFactory(entropy),
		commands:   make(chan command),
		hub:        newNotificationHub(notificationHubCapacity),
		log:        log.With("session", id.String()),
		done:       make(chan struct{}),
	}

	if w, err := watch.New(projectDir, log); err != nil {
		s.log.Warn("lspsession: file watcher not started", "error", err.Error())
	} else {
		s.watcher = w
	}

	go s.run()

	return s, nil
}

// Done is closed when the run loop terminates (subprocess exit, Kill,
// or an unrecoverable I/O error).
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run() {
	defer close(s.done)
	defer s.hub.closeHub()
	defer s.proc.Close()
	if s.watcher != nil {
		defer s.watcher.Stop()
	}

	pending := newPendingTable()
	docs := newDocumentState()

	var watchEvents <-chan watch.Event
	if s.watcher != nil {
		watchEvents = s.watcher.Events()
	}

	for {
		select {
		case cmd, ok := <-s.commands:
			if !ok {
				return
			}
			if cmd.kind == cmdKill {
				s.handleKill(cmd, pending)
				return
			}
			s.handleCommand(cmd, pending, docs)

		case frame, ok := <-s.proc.Output():
			if !ok {
				continue // Exited() fires next and ends the loop
			}
			s.handleFrame(frame, pending)

		case ev, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			s.handleWatchEvent(ev)

		case err := <-s.proc.Exited():
			s.procFinished = true
			s.log.Warn("lspsession: subprocess exited", "error", errString(err))
			s.failAllPending(pending, fmt.Errorf("lspsession: subprocess exited: %w", errOrEnded(err)))
			return
		}
	}
}

func (s *Session) handleCommand(cmd command, pending *pendingTable, docs *documentState) {
	switch cmd.kind {
	case cmdInitialize:
		s.handleInitialize(cmd, pending)
	case cmdOpenFile:
		s.handleOpenFile(cmd, pending, docs)
	case cmdChangeFile:
		s.handleChangeFile(cmd, docs)
	case cmdCloseFile:
		s.handleCloseFile(cmd, docs)
	case cmdHoverFile:
		s.handleHover(cmd, pending)
	case cmdGetPlainGoals:
		s.handleGetPlainGoals(cmd, pending)
	case cmdGetStatus:
		cmd.replyStatus <- Status{SessionID: s.ID.String(), ProcessFinished: s.procFinished}
	}
}

func (s *Session) handleKill(cmd command, pending *pendingTable) {
	s.failAllPending(pending, ErrSessionEnded)
	err := s.proc.Kill()
	s.procFinished = true
	if cmd.replyErr != nil {
		cmd.replyErr <- err
	}
}

func (s *Session) handleInitialize(cmd command, pending *pendingTable) {
	rootURI, err := lspuri.FromPath(s.ProjectDir)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	body, id, err := s.factory.Initialize(os.Getpid(), rootURI, filepath.Base(s.ProjectDir))
	if err != nil {
		cmd.replyErr <- err
		return
	}

	replyErr := cmd.replyErr
	pending.insert(id, "initialize", func(_ json.RawMessage, rpcErr *rpcError) {
		if rpcErr != nil {
			replyErr <- fmt.Errorf("lspsession: initialize failed (%d): %s", rpcErr.Code, rpcErr.Message)
			return
		}
		replyErr <- nil
	}, s.log)

	s.proc.Input() <- body
}

// handleOpenFile implements spec.md §4.4's OpenFile command: reject if
// already open, else read the file and send, in order, didOpen then
// four fire-and-forget requests (documentSymbol, codeAction,
// foldingRange, $/lean/rpc/connect) — the exact order
// original_source/src/session_runner.rs::open_file uses. The
// open-files entry is only inserted after every send is constructed
// successfully.
func (s *Session) handleOpenFile(cmd command, pending *pendingTable, docs *documentState) {
	path := cmd.path

	if docs.isOpen(path) {
		cmd.replyErr <- ErrAlreadyOpen
		return
	}

	text, err := os.ReadFile(path)
	if err != nil {
		cmd.replyErr <- fmt.Errorf("lspsession: read %s: %w", path, err)
		return
	}

	uri, err := lspuri.FromPath(path)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	didOpen, err := s.factory.DidOpen(uri, string(text))
	if err != nil {
		cmd.replyErr <- err
		return
	}
	symBody, symID, err := s.factory.DocumentSymbol(uri)
	if err != nil {
		cmd.replyErr <- err
		return
	}
	caBody, caID, err := s.factory.CodeAction(uri)
	if err != nil {
		cmd.replyErr <- err
		return
	}
	frBody, frID, err := s.factory.FoldingRange(uri)
	if err != nil {
		cmd.replyErr <- err
		return
	}
	rpcBody, rpcID, err := s.factory.RPCConnect(uri)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	s.proc.Input() <- didOpen
	pending.insert(symID, "textDocument/documentSymbol", nil, s.log)
	s.proc.Input() <- symBody
	pending.insert(caID, "textDocument/codeAction", nil, s.log)
	s.proc.Input() <- caBody
	pending.insert(frID, "textDocument/foldingRange", nil, s.log)
	s.proc.Input() <- frBody
	pending.insert(rpcID, "$/lean/rpc/connect", nil, s.log)
	s.proc.Input() <- rpcBody

	if err := docs.open(path); err != nil {
		cmd.replyErr <- err
		return
	}
	cmd.replyErr <- nil
}

func (s *Session) handleChangeFile(cmd command, docs *documentState) {
	v, err := docs.bumpVersion(cmd.path)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	uri, err := lspuri.FromPath(cmd.path)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	body, err := s.factory.DidChange(uri, v, cmd.text)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	s.proc.Input() <- body
	cmd.replyErr <- nil
}

func (s *Session) handleCloseFile(cmd command, docs *documentState) {
	if !docs.isOpen(cmd.path) {
		cmd.replyErr <- ErrFileNotOpen
		return
	}

	uri, err := lspuri.FromPath(cmd.path)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	body, err := s.factory.DidClose(uri)
	if err != nil {
		cmd.replyErr <- err
		return
	}

	s.proc.Input() <- body
	_ = docs.close(cmd.path)
	cmd.replyErr <- nil
}

func (s *Session) handleHover(cmd command, pending *pendingTable) {
	uri, err := lspuri.FromPath(cmd.location.Path)
	if err != nil {
		cmd.replyHover <- HoverReply{Err: err}
		return
	}

	body, id, err := s.factory.Hover(uri, cmd.location.Line, cmd.location.Character)
	if err != nil {
		cmd.replyHover <- HoverReply{Err: err}
		return
	}

	reply := cmd.replyHover
	pending.insert(id, "textDocument/hover", func(result json.RawMessage, rpcErr *rpcError) {
		if rpcErr != nil {
			reply <- HoverReply{Err: fmt.Errorf("lspsession: hover failed (%d): %s", rpcErr.Code, rpcErr.Message)}
			return
		}
		reply <- HoverReply{Raw: result}
	}, s.log)

	s.proc.Input() <- body
}

func (s *Session) handleGetPlainGoals(cmd command, pending *pendingTable) {
	uri, err := lspuri.FromPath(cmd.location.Path)
	if err != nil {
		cmd.replyGoals <- PlainGoalsReply{Err: err}
		return
	}

	body, id, err := s.factory.PlainGoal(uri, cmd.location.Line, cmd.location.Character)
	if err != nil {
		cmd.replyGoals <- PlainGoalsReply{Err: err}
		return
	}

	reply := cmd.replyGoals
	pending.insert(id, "$/lean/plainGoal", func(result json.RawMessage, rpcErr *rpcError) {
		if rpcErr != nil {
			reply <- PlainGoalsReply{Err: fmt.Errorf("lspsession: plainGoal failed (%d): %s", rpcErr.Code, rpcErr.Message)}
			return
		}
		if len(result) == 0 || string(result) == "null" {
			reply <- PlainGoalsReply{}
			return
		}
		var goals PlainGoals
		if err := json.Unmarshal(result, &goals); err != nil {
			reply <- PlainGoalsReply{Err: fmt.Errorf("%w: %v", ErrDecode, err)}
			return
		}
		reply <- PlainGoalsReply{Result: &goals}
	}, s.log)

	s.proc.Input() <- body
}

// inboundShape is the superset of fields any inbound LSP frame might
// carry: a response (id + result/error) or a notification/
// server-to-client request (method, optional id).
type inboundShape struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (s *Session) handleFrame(frame []byte, pending *pendingTable) {
	var shape inboundShape
	if err := json.Unmarshal(frame, &shape); err != nil {
		s.log.Warn("lspsession: malformed frame", "error", err.Error())
		return
	}

	if len(shape.ID) == 0 || string(shape.ID) == "null" {
		s.log.Debug("lspsession: notification", "method", shape.Method)
		s.hub.publish(Notification{Method: shape.Method, Raw: frame})
		return
	}

	var id requestid.RequestID
	if err := json.Unmarshal(shape.ID, &id); err != nil {
		s.log.Warn("lspsession: malformed id in frame", "id", string(shape.ID), "error", err.Error())
		return
	}

	if !id.IsOurs() {
		s.log.Debug("lspsession: server-to-client request, logging only", "id", id.String(), "method", shape.Method)
		return
	}

	entry, found := pending.resolve(id)
	if !found {
		s.log.Debug("lspsession: response with no matching pending entry", "id", id.String())
		return
	}

	if entry.onReply != nil {
		entry.onReply(shape.Result, shape.Error)
	} else {
		s.log.Debug("lspsession: fire-and-forget reply", "method", entry.method)
	}

	if entry.method == "initialize" && shape.Error == nil {
		body, err := s.factory.Initialized()
		if err != nil {
			s.log.Warn("lspsession: build initialized notification", "error", err.Error())
			return
		}
		s.proc.Input() <- body
	}
}

func (s *Session) handleWatchEvent(ev watch.Event) {
	uri, err := lspuri.FromPath(ev.Path)
	if err != nil {
		s.log.Warn("lspsession: watch event with unconvertible path", "path", ev.Path, "error", err.Error())
		return
	}
	body, err := s.factory.DidChangeWatchedFiles(uri, ev.ChangeType)
	if err != nil {
		s.log.Warn("lspsession: build didChangeWatchedFiles", "error", err.Error())
		return
	}
	s.proc.Input() <- body
}

func (s *Session) failAllPending(pending *pendingTable, err error) {
	synthetic := &rpcError{Code: -1, Message: err.Error()}
	for _, e := range pending.drainAll() {
		if e.onReply != nil {
			e.onReply(nil, synthetic)
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}

func errOrEnded(err error) error {
	if err == nil {
		return fmt.Errorf("clean exit")
	}
	return err
}

// subscribe exposes the notifications hub to the gateway layer. It is
// not part of the command protocol: reads of the hub's ring buffer are
// safe for concurrent callers (see notify.go), unlike session state.
func (s *Session) subscribe() *subscription {
	return s.hub.subscribe()
}
