package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/mkxl/lean-lsp-gateway/internal/lspsession"
	"github.com/mkxl/lean-lsp-gateway/internal/sessionset"
)

// errNotStreamable is returned when the underlying ResponseWriter
// does not support flushing (spec.md §6's chunked notifications
// stream requires it).
var errNotStreamable = errors.New("gateway: response writer does not support streaming")

// writeJSON writes v as the response body with Content-Type set.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a session/session-set error to an HTTP status and
// reports it as a JSON-RPC-shaped error body (jsonrpc2.Error, the
// teacher's own error-reporting type for LSP-adjacent failures, see
// lsp/handler.go's ReplyWithError usage).
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, jsonrpc2.CodeInternalError

	switch {
	case errors.Is(err, sessionset.ErrUnknownSession):
		status, code = http.StatusNotFound, jsonrpc2.CodeInvalidParams
	case errors.Is(err, sessionset.ErrAmbiguousSession):
		status, code = http.StatusBadRequest, jsonrpc2.CodeInvalidParams
	case errors.Is(err, sessionset.ErrNoManifest):
		status, code = http.StatusBadRequest, jsonrpc2.CodeInvalidParams
	case errors.Is(err, lspsession.ErrAlreadyOpen), errors.Is(err, lspsession.ErrFileNotOpen):
		status, code = http.StatusConflict, jsonrpc2.CodeInvalidParams
	case errors.Is(err, lspsession.ErrDecode):
		status, code = http.StatusBadGateway, jsonrpc2.CodeInternalError
	case errors.Is(err, lspsession.ErrSessionEnded):
		status, code = http.StatusGone, jsonrpc2.CodeInternalError
	}

	rpcErr := &jsonrpc2.Error{Code: code, Message: err.Error()}
	writeJSON(w, status, rpcErr)
}
