package sessionset

import "errors"

// Error kinds from spec.md §7 that surface from the session-set actor.
var (
	ErrNoManifest       = errors.New("sessionset: no lake-manifest.json found in ancestor directories")
	ErrAmbiguousSession = errors.New("sessionset: no session id given and there is not exactly one session")
	ErrUnknownSession   = errors.New("sessionset: unknown session id")
	ErrClosed           = errors.New("sessionset: session set is closed")
)
