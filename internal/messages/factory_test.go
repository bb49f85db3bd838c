package messages

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFactory() *Factory {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(1)), 0)
	return NewFactory(entropy)
}

func TestInitializeRequest(t *testing.T) {
	f := newFactory()
	body, id, err := f.Initialize(1234, "file:///tmp/proj", "proj")
	require.NoError(t, err)
	assert.True(t, id.IsOurs())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "2.0", decoded["jsonrpc"])
	assert.Equal(t, "initialize", decoded["method"])
	params := decoded["params"].(map[string]any)
	assert.Equal(t, float64(1234), params["processId"])
	assert.Equal(t, "file:///tmp/proj", params["rootUri"])
}

func TestDidOpenDependencyBuildMode(t *testing.T) {
	f := newFactory()
	body, err := f.DidOpen("file:///tmp/Foo.lean", "example : 1 + 1 = 2 := rfl")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "textDocument/didOpen", decoded["method"])
	_, hasID := decoded["id"]
	assert.False(t, hasID, "notifications must omit id")

	params := decoded["params"].(map[string]any)
	assert.Equal(t, "never", params["dependencyBuildMode"])
	td := params["textDocument"].(map[string]any)
	assert.Equal(t, float64(0), td["version"])
}

func TestDidChangeFullTextSingleEntry(t *testing.T) {
	f := newFactory()
	body, err := f.DidChange("file:///tmp/Foo.lean", 1, "new text")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	params := decoded["params"].(map[string]any)
	changes := params["contentChanges"].([]any)
	require.Len(t, changes, 1)
	assert.Equal(t, "new text", changes[0].(map[string]any)["text"])
	td := params["textDocument"].(map[string]any)
	assert.Equal(t, float64(1), td["version"])
}

func TestCodeActionZeroWidthRangeAndTriggerKind(t *testing.T) {
	f := newFactory()
	body, _, err := f.CodeAction("file:///tmp/Foo.lean")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	params := decoded["params"].(map[string]any)
	rng := params["range"].(map[string]any)
	start := rng["start"].(map[string]any)
	end := rng["end"].(map[string]any)
	assert.Equal(t, float64(0), start["line"])
	assert.Equal(t, float64(0), start["character"])
	assert.Equal(t, float64(0), end["line"])
	assert.Equal(t, float64(0), end["character"])

	ctx := params["context"].(map[string]any)
	assert.Equal(t, float64(2), ctx["triggerKind"])
	assert.Empty(t, ctx["diagnostics"])
}

func TestRequestIDsUniqueAcrossFactoryCalls(t *testing.T) {
	f := newFactory()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		_, id, err := f.DocumentSymbol("file:///tmp/Foo.lean")
		require.NoError(t, err)
		s := id.String()
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func TestRPCConnectAndPlainGoalShapes(t *testing.T) {
	f := newFactory()

	connectBody, _, err := f.RPCConnect("file:///tmp/Foo.lean")
	require.NoError(t, err)
	var connectDecoded map[string]any
	require.NoError(t, json.Unmarshal(connectBody, &connectDecoded))
	assert.Equal(t, "$/lean/rpc/connect", connectDecoded["method"])
	assert.Equal(t, "file:///tmp/Foo.lean", connectDecoded["params"].(map[string]any)["uri"])

	goalBody, _, err := f.PlainGoal("file:///tmp/Foo.lean", 0, 18)
	require.NoError(t, err)
	var goalDecoded map[string]any
	require.NoError(t, json.Unmarshal(goalBody, &goalDecoded))
	params := goalDecoded["params"].(map[string]any)
	pos := params["position"].(map[string]any)
	assert.Equal(t, float64(18), pos["character"])
}
