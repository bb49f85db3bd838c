package lspsession

import "encoding/json"

// Location identifies a zero-based line/character position in a file,
// UTF-16 code-unit semantics as LSP mandates (spec.md §3).
type Location struct {
	Path      string
	Line      uint32
	Character uint32
}

// Status is the synchronous reply to GetStatus.
type Status struct {
	SessionID       string
	ProcessFinished bool
}

// HoverReply carries a raw textDocument/hover result or an error.
type HoverReply struct {
	Raw json.RawMessage
	Err error
}

// PlainGoals is the typed shape for $/lean/plainGoal results, per
// original_source's types.rs (authoritative per spec.md §9).
type PlainGoals struct {
	Goals    []string `json:"goals"`
	Rendered string   `json:"rendered"`
}

// PlainGoalsReply carries a (possibly absent) typed goals result or an
// error.
type PlainGoalsReply struct {
	Result *PlainGoals
	Err    error
}

type commandKind int

const (
	cmdInitialize commandKind = iota
	cmdOpenFile
	cmdChangeFile
	cmdCloseFile
	cmdHoverFile
	cmdGetPlainGoals
	cmdGetStatus
	cmdKill
)

// command is the tagged record every inbound operation is represented
// as (spec.md §4.4): exactly one reply field is populated, matching
// the command's kind.
type command struct {
	kind     commandKind
	path     string
	text     string
	location Location

	replyErr    chan error
	replyHover  chan HoverReply
	replyGoals  chan PlainGoalsReply
	replyStatus chan Status
}
