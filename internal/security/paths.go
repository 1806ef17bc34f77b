// Package security checks the file paths a run reads from and writes to.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports an error unless path resolves to a
// location inside dir. Symlinks are resolved for path and for the deepest
// existing parent of a path that does not exist yet.
func ValidatePathWithinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	rel, err := filepath.Rel(realDir, canonical(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes %s", path, dir)
	}
	return nil
}

// canonical resolves symlinks in the longest existing prefix of abs.
func canonical(abs string) string {
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	for parent := filepath.Dir(abs); ; parent = filepath.Dir(parent) {
		if real, err := filepath.EvalSymlinks(parent); err == nil {
			rest, _ := filepath.Rel(parent, abs)
			return filepath.Join(real, rest)
		}
		if parent == filepath.Dir(parent) {
			return abs
		}
	}
}

// ValidateOutputPath accepts database and table paths inside the working
// directory or the system temp directory.
func ValidateOutputPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	for _, dir := range []string{cwd, os.TempDir()} {
		if ValidatePathWithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("output path %s must be inside %s or %s", path, cwd, os.TempDir())
}

// ResolveDataPath resolves a grid path named in a scenario file. Relative
// paths are taken from the scenario's directory and must not leave it;
// absolute paths are returned cleaned.
func ResolveDataPath(scenarioDir, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	full := filepath.Join(scenarioDir, path)
	if err := ValidatePathWithinDirectory(full, scenarioDir); err != nil {
		return "", err
	}
	return full, nil
}
