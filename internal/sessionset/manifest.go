package sessionset

import (
	"fmt"
	"os"
	"path/filepath"
)

// lakeManifestFileName is the file findProjectDir searches ancestor
// directories for, grounded on original_source's
// session_runner.rs::MANIFEST_FILE_NAME.
const lakeManifestFileName = "lake-manifest.json"

// findProjectDir resolves leanPath to the Lake project directory that
// owns it: it walks leanPath's ancestors, at each one checking
// directly for "<ancestor>/lake-manifest.json" (the direct reading of
// spec.md §9's flagged Open Question, not the sibling-lookup reading
// an older revision used). The returned directory is absolute.
func findProjectDir(leanPath string) (string, error) {
	abs, err := filepath.Abs(leanPath)
	if err != nil {
		return "", fmt.Errorf("sessionset: resolve absolute path for %q: %w", leanPath, err)
	}

	for dir := abs; ; {
		candidate := filepath.Join(dir, lakeManifestFileName)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w: walked ancestors of %s", ErrNoManifest, leanPath)
}
