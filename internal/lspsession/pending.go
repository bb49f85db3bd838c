package lspsession

import (
	"encoding/json"

	"github.com/mkxl/lean-lsp-gateway/internal/logging"
	"github.com/mkxl/lean-lsp-gateway/internal/requestid"
)

// rpcError mirrors a JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// onReplyFunc resolves a pending request's caller once the matching
// response frame arrives. A nil onReplyFunc marks a fire-and-forget
// entry (spec.md §3): the response is logged and discarded.
type onReplyFunc func(result json.RawMessage, rpcErr *rpcError)

type pendingEntry struct {
	method  string
	onReply onReplyFunc
}

// pendingTable is the session actor's pending-request table, keyed by
// the ULID string of an OurId request. It is owned exclusively by the
// run loop.
type pendingTable struct {
	entries map[string]pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]pendingEntry)}
}

// insert records a pending entry for id. A collision (DuplicateRequestId,
// spec.md §7) is logged as a warning and the existing entry is
// overwritten rather than treated as fatal.
func (t *pendingTable) insert(id requestid.RequestID, method string, onReply onReplyFunc, log logging.Logger) {
	key := id.String()
	if _, exists := t.entries[key]; exists {
		log.Warn("lspsession: duplicate request id, overwriting pending entry", "id", key, "method", method)
	}
	t.entries[key] = pendingEntry{method: method, onReply: onReply}
}

// resolve removes and returns the pending entry for id, if any.
func (t *pendingTable) resolve(id requestid.RequestID) (pendingEntry, bool) {
	key := id.String()
	e, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	return e, ok
}

// drainAll removes and returns every pending entry, for use when the
// session is tearing down and every waiting caller must be unblocked.
func (t *pendingTable) drainAll() []pendingEntry {
	out := make([]pendingEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.entries = make(map[string]pendingEntry)
	return out
}
