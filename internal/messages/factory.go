// Package messages builds well-formed JSON-RPC requests and
// notifications for the LSP methods the session runtime uses, and
// assigns fresh request IDs via internal/requestid.
package messages

import (
	"encoding/json"
	"fmt"

	"github.com/myleshyson/lsprotocol-go/protocol"
	"github.com/oklog/ulid/v2"

	"github.com/mkxl/lean-lsp-gateway/internal/requestid"
)

// LeanLanguageID is the LSP languageId Lean source files are opened
// with.
const LeanLanguageID = protocol.LanguageKind("lean4")

// InitialVersion is the version stamped on a freshly opened document,
// matching messages/text_document.rs::INITIAL_TEXT_DOCUMENT_VERSION.
const InitialVersion = 0

type request struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      requestid.RequestID `json:"id"`
	Method  string             `json:"method"`
	Params  any                `json:"params,omitempty"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Factory mints fresh request IDs and serializes LSP-compliant JSON
// for the methods the session actor issues. One Factory per session;
// it is not safe for concurrent use, matching the session actor's
// single-threaded run loop.
type Factory struct {
	entropy *ulid.MonotonicEntropy
}

// NewFactory builds a Factory seeded from a monotonic entropy source.
func NewFactory(entropy *ulid.MonotonicEntropy) *Factory {
	return &Factory{entropy: entropy}
}

func (f *Factory) nextID() (requestid.RequestID, error) {
	id, err := requestid.New(f.entropy)
	if err != nil {
		return requestid.RequestID{}, fmt.Errorf("messages: mint request id: %w", err)
	}
	return id, nil
}

func (f *Factory) request(method string, params any) ([]byte, requestid.RequestID, error) {
	id, err := f.nextID()
	if err != nil {
		return nil, requestid.RequestID{}, err
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, requestid.RequestID{}, fmt.Errorf("messages: encode %s request: %w", method, err)
	}
	return body, id, nil
}

func notif(method string, params any) ([]byte, error) {
	body, err := json.Marshal(notification{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("messages: encode %s notification: %w", method, err)
	}
	return body, nil
}

// initializeParams mirrors the plain JSON object original_source's
// messages.rs builds for "initialize" rather than lsprotocol-go's
// generated InitializeParams: the fields this module needs
// (processId, rootUri, a minimal capabilities block, workspaceFolders)
// are a small, stable subset and building them directly avoids
// depending on the generated type's exact optional-pointer shape.
type initializeParams struct {
	ProcessID  int                   `json:"processId"`
	RootURI    string                `json:"rootUri"`
	Capabilities initializeCapabilities `json:"capabilities"`
	WorkspaceFolders []workspaceFolder `json:"workspaceFolders"`
}

type initializeCapabilities struct {
	Window windowCapabilities `json:"window"`
}

type windowCapabilities struct {
	WorkDoneProgress bool `json:"workDoneProgress"`
}

type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// Initialize builds the "initialize" request. processID is the
// gateway's own PID; rootURI and folderName identify the project.
func (f *Factory) Initialize(processID int, rootURI, folderName string) ([]byte, requestid.RequestID, error) {
	params := initializeParams{
		ProcessID: processID,
		RootURI:   rootURI,
		Capabilities: initializeCapabilities{
			Window: windowCapabilities{WorkDoneProgress: true},
		},
		WorkspaceFolders: []workspaceFolder{{URI: rootURI, Name: folderName}},
	}
	return f.request("initialize", params)
}

// Initialized builds the "initialized" notification (empty params).
func (f *Factory) Initialized() ([]byte, error) {
	return notif("initialized", protocol.InitializedParams{})
}

// DidOpen builds a "textDocument/didOpen" notification. Per
// original_source's did_open_notification_params, dependencyBuildMode
// is forced to "never".
func (f *Factory) DidOpen(uri, text string) ([]byte, error) {
	params := struct {
		TextDocument        protocol.TextDocumentItem `json:"textDocument"`
		DependencyBuildMode string                    `json:"dependencyBuildMode"`
	}{
		TextDocument: protocol.TextDocumentItem{
			Uri:        protocol.DocumentUri(uri),
			LanguageId: LeanLanguageID,
			Version:    InitialVersion,
			Text:       text,
		},
		DependencyBuildMode: "never",
	}
	return notif("textDocument/didOpen", params)
}

// DidChange builds a "textDocument/didChange" notification carrying a
// single full-text content change (no incremental edits), matching
// original_source's did_change_notification_params.
func (f *Factory) DidChange(uri string, version int32, text string) ([]byte, error) {
	params := struct {
		TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
		ContentChanges []struct {
			Text string `json:"text"`
		} `json:"contentChanges"`
	}{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			Uri:     protocol.DocumentUri(uri),
			Version: version,
		},
	}
	params.ContentChanges = []struct {
		Text string `json:"text"`
	}{{Text: text}}
	return notif("textDocument/didChange", params)
}

// DidClose builds a "textDocument/didClose" notification.
func (f *Factory) DidClose(uri string) ([]byte, error) {
	params := protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
	}
	return notif("textDocument/didClose", params)
}

// DocumentSymbol builds a "textDocument/documentSymbol" request
// (fire-and-forget per spec.md §3's pending-request variant).
func (f *Factory) DocumentSymbol(uri string) ([]byte, requestid.RequestID, error) {
	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
	}
	return f.request("textDocument/documentSymbol", params)
}

// CodeAction builds a "textDocument/codeAction" request with an empty
// diagnostics list, trigger kind 2 (automatic), and a zero-width range
// at (0,0), matching original_source's document_code_action_params —
// these elicit file-level actions rather than ones scoped to a
// selection.
func (f *Factory) CodeAction(uri string) ([]byte, requestid.RequestID, error) {
	triggerKind := protocol.CodeActionTriggerKind(2)
	params := protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 0},
		},
		Context: protocol.CodeActionContext{
			Diagnostics: []protocol.Diagnostic{},
			TriggerKind: &triggerKind,
		},
	}
	return f.request("textDocument/codeAction", params)
}

// FoldingRange builds a "textDocument/foldingRange" request.
func (f *Factory) FoldingRange(uri string) ([]byte, requestid.RequestID, error) {
	params := protocol.FoldingRangeParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
	}
	return f.request("textDocument/foldingRange", params)
}

// RPCConnect builds a "$/lean/rpc/connect" request, Lean-specific and
// absent from lsprotocol-go's generated types, grounded on
// original_source's messages/lean_rpc.rs::connect_params.
func (f *Factory) RPCConnect(uri string) ([]byte, requestid.RequestID, error) {
	params := struct {
		URI string `json:"uri"`
	}{URI: uri}
	return f.request("$/lean/rpc/connect", params)
}

// PlainGoal builds a "$/lean/plainGoal" request, grounded on
// original_source's messages/lean_rpc.rs::get_plain_goals.
func (f *Factory) PlainGoal(uri string, line, character uint32) ([]byte, requestid.RequestID, error) {
	params := struct {
		TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
		Position     protocol.Position               `json:"position"`
	}{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
	return f.request("$/lean/plainGoal", params)
}

// Hover builds a "textDocument/hover" request.
func (f *Factory) Hover(uri string, line, character uint32) ([]byte, requestid.RequestID, error) {
	params := protocol.HoverParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
	return f.request("textDocument/hover", params)
}

// DidChangeWatchedFiles builds a "workspace/didChangeWatchedFiles"
// notification for the supplemented file-watcher feature (see
// internal/watch). changeType follows the LSP FileChangeType enum:
// 1=Created, 2=Changed, 3=Deleted.
func (f *Factory) DidChangeWatchedFiles(uri string, changeType int) ([]byte, error) {
	params := struct {
		Changes []struct {
			URI  string `json:"uri"`
			Type int    `json:"type"`
		} `json:"changes"`
	}{
		Changes: []struct {
			URI  string `json:"uri"`
			Type int    `json:"type"`
		}{{URI: uri, Type: changeType}},
	}
	return notif("workspace/didChangeWatchedFiles", params)
}
