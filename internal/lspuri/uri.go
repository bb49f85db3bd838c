// Package lspuri converts between absolute filesystem paths and the
// file:// URIs LSP messages carry. Trimmed from the teacher's
// utils/uri.go to the absolute-path case this module needs: callers
// canonicalize at path-use time (see internal/lspsession), not at
// session construction.
package lspuri

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// FromPath converts an absolute filesystem path to a file:// URI. The
// path is first made absolute against the current working directory
// if it is not already, matching spec.md §4.4's requirement that
// canonicalisation happen at path-use time.
func FromPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("lspuri: resolve absolute path for %q: %w", path, err)
	}

	slashPath := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashPath, "/") {
		slashPath = "/" + slashPath
	}

	u := url.URL{Scheme: "file", Path: slashPath}
	return u.String(), nil
}

// ToPath converts a file:// URI back to an absolute filesystem path.
func ToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("lspuri: parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("lspuri: uri %q is not a file:// uri", uri)
	}

	path := u.Path
	if path == "" {
		return "", fmt.Errorf("lspuri: uri %q has an empty path", uri)
	}
	return filepath.FromSlash(path), nil
}
