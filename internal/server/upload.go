package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var errBadFileName = errors.New("invalid file name")

// uploadPath returns where an uploaded file named name is stored. Client
// supplied directories are dropped and the result must stay inside dir.
func uploadPath(dir, name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", fmt.Errorf("%w: %q", errBadFileName, name)
	}
	target := filepath.Join(dir, base)
	if err := withinBoundary(dir, target); err != nil {
		return "", err
	}
	return target, nil
}

func withinBoundary(boundaryPath, targetPath string) error {
	absBoundary, err := filepath.Abs(boundaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve boundary path %q: %w", boundaryPath, err)
	}
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return fmt.Errorf("failed to resolve target path %q: %w", targetPath, err)
	}
	rel, err := filepath.Rel(absBoundary, absTarget)
	if err != nil {
		return fmt.Errorf("invalid path relationship between %q and %q: %w", absBoundary, absTarget, err)
	}
	// If relative path starts with "..", target is outside boundary
	if rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path traversal detected: %q escapes boundary %q", targetPath, boundaryPath)
	}
	return nil
}
