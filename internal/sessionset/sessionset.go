// Package sessionset implements the session-set actor from spec.md
// §4.5: a directory of sessions keyed by SessionId, spawning and
// reaping session actors, and resolving "the implicit session" when a
// caller names none. Grounded on
// original_source/src/session_set_runner.rs (SessionSetRunner) as the
// canonical revision, with session_set.rs consulted for the
// reaping/cleanup shape.
package sessionset

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
	"github.com/mkxl/lean-lsp-gateway/internal/lspsession"
)

// SessionStatus is one entry of GetSessions's snapshot, matching
// original_source's types.rs::SessionStatus.
type SessionStatus struct {
	ID      string `json:"id"`
	Process struct {
		IsFinished bool `json:"is_finished"`
	} `json:"process"`
}

// Status is the aggregate shape for GET /status, matching
// original_source's types.rs::SessionSetStatus.
type Status struct {
	SessionSet struct {
		IsFinished bool `json:"is_finished"`
	} `json:"session_set"`
	Sessions []SessionStatus `json:"sessions"`
}

type commandKind int

const (
	cmdNewSession commandKind = iota
	cmdGetSessions
	cmdGetSession
	cmdKillSession
	cmdStatus
	cmdShutdown
)

type newSessionResult struct {
	session *lspsession.Session
	err     error
}

type getSessionResult struct {
	session *lspsession.Session
	err     error
}

type command struct {
	kind commandKind

	leanPath         string
	leanServerLogDir string
	sessionID        *ulid.ULID

	replyNewSession chan newSessionResult
	replySessions   chan []*lspsession.Session
	replyGetSession chan getSessionResult
	replyErr        chan error
	replyStatus     chan Status
	replyDone       chan struct{}
}

// SessionSet is the actor. Its dictionary and reaping state live only
// inside run's local variables, per spec.md §4.6.
type SessionSet struct {
	commands chan command
	log      logging.Logger
	done     chan struct{}
}

// New starts the session-set actor's run loop.
func New(log logging.Logger) *SessionSet {
	ss := &SessionSet{
		commands: make(chan command),
		log:      log,
		done:     make(chan struct{}),
	}
	go ss.run()
	return ss
}

// Done is closed once the session-set actor's run loop exits (Close
// was called).
func (ss *SessionSet) Done() <-chan struct{} { return ss.done }

func (ss *SessionSet) run() {
	defer close(ss.done)

	sessions := make(map[ulid.ULID]*lspsession.Session)
	reaped := make(chan ulid.ULID)
	shutdown := make(chan struct{})
	defer close(shutdown)

	watch := func(id ulid.ULID, sess *lspsession.Session) {
		select {
		case <-sess.Done():
		case <-shutdown:
			return
		}
		select {
		case reaped <- id:
		case <-shutdown:
		}
	}

	for {
		select {
		case cmd, ok := <-ss.commands:
			if !ok {
				return
			}
			if cmd.kind == cmdShutdown {
				close(cmd.replyDone)
				return
			}
			ss.process(cmd, sessions, watch)

		case id := <-reaped:
			if _, ok := sessions[id]; ok {
				delete(sessions, id)
				ss.log.Info("sessionset: reaped session", "session", id.String())
			}
		}
	}
}

func (ss *SessionSet) process(cmd command, sessions map[ulid.ULID]*lspsession.Session, watch func(ulid.ULID, *lspsession.Session)) {
	switch cmd.kind {
	case cmdNewSession:
		id := ulid.Make()
		projectDir, err := findProjectDir(cmd.leanPath)
		if err != nil {
			cmd.replyNewSession <- newSessionResult{err: err}
			return
		}

		sess, err := lspsession.New(context.Background(), id, projectDir, cmd.leanServerLogDir, ss.log)
		if err != nil {
			cmd.replyNewSession <- newSessionResult{err: fmt.Errorf("sessionset: new session: %w", err)}
			return
		}

		sessions[id] = sess
		go watch(id, sess)
		cmd.replyNewSession <- newSessionResult{session: sess}

	case cmdGetSessions:
		out := make([]*lspsession.Session, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, s)
		}
		cmd.replySessions <- out

	case cmdGetSession:
		sess, err := ss.resolve(cmd.sessionID, sessions)
		cmd.replyGetSession <- getSessionResult{session: sess, err: err}

	case cmdKillSession:
		sess, err := ss.resolve(cmd.sessionID, sessions)
		if err != nil {
			cmd.replyErr <- err
			return
		}
		cmd.replyErr <- sess.Kill(context.Background())

	case cmdStatus:
		var st Status
		st.SessionSet.IsFinished = false
		for id, sess := range sessions {
			sessStatus, err := sess.GetStatus(context.Background())
			entry := SessionStatus{ID: id.String()}
			if err == nil {
				entry.Process.IsFinished = sessStatus.ProcessFinished
			} else {
				entry.Process.IsFinished = true
			}
			st.Sessions = append(st.Sessions, entry)
		}
		cmd.replyStatus <- st
	}
}

// resolve implements spec.md §4.5's implicit-session resolution: an
// explicit id looks the session up directly; no id resolves to the
// single extant session, or fails with ErrAmbiguousSession when the
// set's size is not exactly 1.
func (ss *SessionSet) resolve(id *ulid.ULID, sessions map[ulid.ULID]*lspsession.Session) (*lspsession.Session, error) {
	if id != nil {
		sess, ok := sessions[*id]
		if !ok {
			return nil, ErrUnknownSession
		}
		return sess, nil
	}

	if len(sessions) == 1 {
		for _, sess := range sessions {
			return sess, nil
		}
	}

	return nil, ErrAmbiguousSession
}

func (ss *SessionSet) sendCommand(ctx context.Context, cmd command) error {
	select {
	case ss.commands <- cmd:
		return nil
	case <-ss.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewSession creates a new session for the Lake project owning
// leanPath (spec.md §4.5's NewSession command).
func (ss *SessionSet) NewSession(ctx context.Context, leanPath, leanServerLogDir string) (*lspsession.Session, error) {
	reply := make(chan newSessionResult, 1)
	cmd := command{kind: cmdNewSession, leanPath: leanPath, leanServerLogDir: leanServerLogDir, replyNewSession: reply}
	if err := ss.sendCommand(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.session, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetSessions returns a snapshot of every current session handle.
func (ss *SessionSet) GetSessions(ctx context.Context) ([]*lspsession.Session, error) {
	reply := make(chan []*lspsession.Session, 1)
	if err := ss.sendCommand(ctx, command{kind: cmdGetSessions, replySessions: reply}); err != nil {
		return nil, err
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetSession resolves id to a session handle; a nil id invokes
// implicit-session resolution.
func (ss *SessionSet) GetSession(ctx context.Context, id *ulid.ULID) (*lspsession.Session, error) {
	reply := make(chan getSessionResult, 1)
	if err := ss.sendCommand(ctx, command{kind: cmdGetSession, sessionID: id, replyGetSession: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.session, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Kill terminates the named session (or the implicit session if id is
// nil).
func (ss *SessionSet) Kill(ctx context.Context, id *ulid.ULID) error {
	reply := make(chan error, 1)
	if err := ss.sendCommand(ctx, command{kind: cmdKillSession, sessionID: id, replyErr: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the aggregate status for GET /status.
func (ss *SessionSet) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if err := ss.sendCommand(ctx, command{kind: cmdStatus, replyStatus: reply}); err != nil {
		return Status{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Close stops the actor's run loop. In-flight sessions are not killed
// (matching spec.md §5's "dropping the session handle does not cancel
// the session" cancellation policy) — callers that want a clean
// shutdown should Kill each session first.
func (ss *SessionSet) Close() {
	reply := make(chan struct{})
	select {
	case ss.commands <- command{kind: cmdShutdown, replyDone: reply}:
		<-reply
	case <-ss.done:
	}
}
