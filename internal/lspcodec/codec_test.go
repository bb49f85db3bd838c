package lspcodec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.NoError(t, enc.Write(body))

	dec := NewDecoder(&buf)
	got, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestDecodeMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Write([]byte(`{"a":1}`)))
	require.NoError(t, enc.Write([]byte(`{"b":2}`)))

	dec := NewDecoder(&buf)
	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(first))

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(second))
}

func TestDecodeIgnoresUnrelatedHeaders(t *testing.T) {
	raw := "Content-Type: application/json\r\nContent-Length: 2\r\n\r\n{}"
	dec := NewDecoder(strings.NewReader(raw))
	got, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestDecodeCaseInsensitiveHeaderName(t *testing.T) {
	raw := "content-LENGTH: 2\r\n\r\n{}"
	dec := NewDecoder(strings.NewReader(raw))
	got, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestDecodeMissingContentLength(t *testing.T) {
	raw := "Content-Type: application/json\r\n\r\n{}"
	dec := NewDecoder(strings.NewReader(raw))
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeMalformedHeader(t *testing.T) {
	raw := "not a header\r\n\r\n{}"
	dec := NewDecoder(strings.NewReader(raw))
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeInvalidLength(t *testing.T) {
	raw := "Content-Length: abc\r\n\r\n{}"
	dec := NewDecoder(strings.NewReader(raw))
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeStreamEndedAtBoundary(t *testing.T) {
	dec := NewDecoder(strings.NewReader(""))
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrStreamEnded)
}

func TestDecodeStreamEndedMidBody(t *testing.T) {
	raw := "Content-Length: 10\r\n\r\n{\"a\":1}"
	dec := NewDecoder(strings.NewReader(raw))
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrStreamEnded)
}

type flushRecorder struct {
	bytes.Buffer
	flushed int
}

func (f *flushRecorder) Flush() error {
	f.flushed++
	return nil
}

func TestEncoderFlushesWhenAvailable(t *testing.T) {
	rec := &flushRecorder{}
	enc := NewEncoder(rec)
	require.NoError(t, enc.Write([]byte(`{}`)))
	assert.Equal(t, 1, rec.flushed)
}

var _ io.Writer = (*flushRecorder)(nil)
