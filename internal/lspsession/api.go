package lspsession

import (
	"context"
	"encoding/json"
)

// sendCommand hands cmd to the run loop, unblocking early if the
// caller's context is done or the session has already ended.
func (s *Session) sendCommand(ctx context.Context, cmd command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialize sends the "initialize" request and blocks until the
// server's response arrives (spec.md §4.4's Initialize command).
func (s *Session) Initialize(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.sendCommand(ctx, command{kind: cmdInitialize, replyErr: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OpenFile sends the OpenFile command for path (spec.md §4.4).
func (s *Session) OpenFile(ctx context.Context, path string) error {
	reply := make(chan error, 1)
	if err := s.sendCommand(ctx, command{kind: cmdOpenFile, path: path, replyErr: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChangeFile sends the ChangeFile command, bumping path's version and
// forwarding the new full text.
func (s *Session) ChangeFile(ctx context.Context, path, text string) error {
	reply := make(chan error, 1)
	cmd := command{kind: cmdChangeFile, path: path, text: text, replyErr: reply}
	if err := s.sendCommand(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseFile sends the CloseFile command for path.
func (s *Session) CloseFile(ctx context.Context, path string) error {
	reply := make(chan error, 1)
	if err := s.sendCommand(ctx, command{kind: cmdCloseFile, path: path, replyErr: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hover sends a textDocument/hover request at loc and returns the raw
// result JSON verbatim (spec.md §1's non-goal: semantic content is not
// interpreted here).
func (s *Session) Hover(ctx context.Context, loc Location) (json.RawMessage, error) {
	reply := make(chan HoverReply, 1)
	cmd := command{kind: cmdHoverFile, location: loc, replyHover: reply}
	if err := s.sendCommand(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.Raw, r.Err
	case <-s.done:
		return nil, ErrSessionEnded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetPlainGoals sends a $/lean/plainGoal request at loc and returns
// the typed result (spec.md §9: the typed path is authoritative).
func (s *Session) GetPlainGoals(ctx context.Context, loc Location) (*PlainGoals, error) {
	reply := make(chan PlainGoalsReply, 1)
	cmd := command{kind: cmdGetPlainGoals, location: loc, replyGoals: reply}
	if err := s.sendCommand(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.Result, r.Err
	case <-s.done:
		return nil, ErrSessionEnded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetStatus returns the session's current status synchronously from
// the run loop (spec.md §4.4's GetStatus command).
func (s *Session) GetStatus(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if err := s.sendCommand(ctx, command{kind: cmdGetStatus, replyStatus: reply}); err != nil {
		if err == ErrSessionEnded {
			return Status{SessionID: s.ID.String(), ProcessFinished: true}, nil
		}
		return Status{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return Status{SessionID: s.ID.String(), ProcessFinished: true}, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Kill terminates the subprocess and ends the session. Idempotent: a
// session that has already ended reports no error.
func (s *Session) Kill(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.sendCommand(ctx, command{kind: cmdKill, replyErr: reply}); err != nil {
		if err == ErrSessionEnded {
			return nil
		}
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscription is a caller-facing handle on the notifications hub.
type Subscription struct {
	sub *subscription
}

// Recv blocks until the next notification, a lag marker, hub closure,
// or ctx cancellation (spec.md §4.4's broadcast semantics).
func (n *Subscription) Recv(ctx context.Context) (Notification, int, error) {
	return n.sub.Recv(ctx)
}

// Subscribe registers a new subscriber on the notifications hub,
// starting from the next notification published after this call.
func (s *Session) Subscribe() *Subscription {
	return &Subscription{sub: s.subscribe()}
}
