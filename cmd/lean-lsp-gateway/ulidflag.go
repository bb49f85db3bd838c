package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/spf13/pflag"
)

// ulidValue is a pflag.Value wrapping an optional ULID, for the
// `--session-id` flag original_source/src/commands.rs declares as
// `Option<Ulid>` on OpenFileCommand. An empty flag means "resolve the
// implicit session" (spec.md §4.5).
type ulidValue struct {
	id  ulid.ULID
	set bool
}

var _ pflag.Value = (*ulidValue)(nil)

func (v *ulidValue) String() string {
	if !v.set {
		return ""
	}
	return v.id.String()
}

func (v *ulidValue) Set(s string) error {
	if s == "" {
		v.set = false
		return nil
	}
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return err
	}
	v.id, v.set = id, true
	return nil
}

func (v *ulidValue) Type() string { return "ulid" }

// stringOrEmpty returns the flag's ULID string, or "" when unset, for
// embedding in a JSON request body.
func (v *ulidValue) stringOrEmpty() string {
	if !v.set {
		return ""
	}
	return v.id.String()
}
