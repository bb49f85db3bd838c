package lspsession

import "errors"

// Error kinds from spec.md §7 that surface from the session actor.
var (
	ErrAlreadyOpen  = errors.New("lspsession: file already open")
	ErrFileNotOpen  = errors.New("lspsession: file not open")
	ErrDecode       = errors.New("lspsession: response did not match expected shape")
	ErrSessionEnded = errors.New("lspsession: session has ended")
)
