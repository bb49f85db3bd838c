// Package requestid implements the RequestID sum type: OurID for
// requests this module originates, ServerID for requests the language
// server originates toward us. JSON (de)serialization is shape
// directed: a quoted string decodes as OurID (a ULID), a bare number
// decodes as ServerID.
package requestid

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// RequestID is either an OurID or a ServerID. The zero value is
// invalid; use NewOurID or NewServerID.
type RequestID struct {
	our    *ulid.ULID
	server *int64
}

// NewOurID wraps a ULID we generated.
func NewOurID(id ulid.ULID) RequestID {
	return RequestID{our: &id}
}

// NewServerID wraps a numeric ID the server generated.
func NewServerID(id int64) RequestID {
	return RequestID{server: &id}
}

// IsOurs reports whether this ID was minted by us.
func (r RequestID) IsOurs() bool { return r.our != nil }

// OurID returns the wrapped ULID and true if this is an OurID.
func (r RequestID) OurID() (ulid.ULID, bool) {
	if r.our == nil {
		return ulid.ULID{}, false
	}
	return *r.our, true
}

// ServerID returns the wrapped integer and true if this is a ServerID.
func (r RequestID) ServerID() (int64, bool) {
	if r.server == nil {
		return 0, false
	}
	return *r.server, true
}

// String renders the ID for logging.
func (r RequestID) String() string {
	if r.our != nil {
		return r.our.String()
	}
	if r.server != nil {
		return fmt.Sprintf("%d", *r.server)
	}
	return "<invalid-request-id>"
}

// MarshalJSON renders OurID as a quoted ULID string and ServerID as a
// bare JSON number, matching the shapes LSP request IDs take on the
// wire.
func (r RequestID) MarshalJSON() ([]byte, error) {
	if r.our != nil {
		return json.Marshal(r.our.String())
	}
	if r.server != nil {
		return json.Marshal(*r.server)
	}
	return nil, fmt.Errorf("requestid: cannot marshal zero-value RequestID")
}

// UnmarshalJSON disambiguates by the raw token's leading byte: a
// quote means a ULID string (OurID); anything else is parsed as a
// JSON number (ServerID).
func (r *RequestID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("requestid: empty id")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("requestid: decode string id: %w", err)
		}
		id, err := ulid.ParseStrict(s)
		if err != nil {
			return fmt.Errorf("requestid: parse ulid %q: %w", s, err)
		}
		*r = NewOurID(id)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("requestid: decode numeric id: %w", err)
	}
	*r = NewServerID(n)
	return nil
}

// New mints a fresh OurID using a monotonic entropy source, so IDs
// generated in quick succession within one process remain unique and
// ordered.
func New(entropy *ulid.MonotonicEntropy) (RequestID, error) {
	id, err := ulid.New(ulid.Now(), entropy)
	if err != nil {
		return RequestID{}, fmt.Errorf("requestid: generate ulid: %w", err)
	}
	return NewOurID(id), nil
}
