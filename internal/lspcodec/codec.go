// Package lspcodec reads and writes Content-Length delimited JSON
// frames, the wire framing LSP uses over a child process's stdio.
package lspcodec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrMalformedFrame is returned when a frame's headers are not of
	// the form "Name: value" with a parseable Content-Length present.
	ErrMalformedFrame = errors.New("lspcodec: malformed frame")
	// ErrStreamEnded is returned when the underlying stream EOFs
	// mid-frame, including inside a partially read header line, and at
	// a frame boundary with nothing left to read.
	ErrStreamEnded = errors.New("lspcodec: stream ended")
)

const separator = "\r\n\r\n"

// Decoder reads successive Content-Length framed JSON bodies from an
// underlying byte stream. A Decoder is not safe for concurrent use;
// callers in this module only ever read frames from a single task
// (the subprocess supervisor's pump loop).
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// Next reads the next full frame body. It blocks until a complete
// frame is available, the stream ends, or a read error occurs.
func (d *Decoder) Next() ([]byte, error) {
	contentLength := -1

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrStreamEnded
			}
			return nil, fmt.Errorf("lspcodec: read header: %w", err)
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}

		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header %q has no colon", ErrMalformedFrame, trimmed)
		}
		if !strings.EqualFold(strings.TrimSpace(name), "content-length") {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid content-length %q", ErrMalformedFrame, value)
		}
		contentLength = n
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length header", ErrMalformedFrame)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(d.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrStreamEnded
		}
		return nil, fmt.Errorf("lspcodec: read body: %w", err)
	}

	return body, nil
}

// Encoder writes Content-Length framed JSON bodies to an underlying
// stream. Like Decoder, it is single-writer by contract: the subprocess
// supervisor's pump loop is the sole caller, so no internal locking is
// needed.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Write frames body and writes it in full, flushing if w implements
// an optional Flush() error method.
func (e *Encoder) Write(body []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Length: %d%s", len(body), separator)
	buf.Write(body)

	if _, err := e.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("lspcodec: write frame: %w", err)
	}
	if f, ok := e.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("lspcodec: flush frame: %w", err)
		}
	}
	return nil
}
