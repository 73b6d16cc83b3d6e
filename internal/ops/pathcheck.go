package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/errors"
)

// PathCheckMode indicates whether a label file is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // label import
	PathCheckWrite                      // label export
)

// LabelExt is the extension every exported label file carries.
const LabelExt = ".rttm"

// Imports also accept plain text dumps of the same format.
var readableExts = []string{LabelExt, ".txt"}

// ValidatePath checks a label file path before it is opened:
//  1. no ".." components
//  2. .rttm extension (.txt also accepted for reads)
//  3. the file sits directly in the exports dir or an allowed_paths entry
//  4. neither the file nor its parent is a symlink
//
// Files in subdirectories are refused so that no intermediate component can
// be swapped for a symlink between this check and the O_NOFOLLOW open.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleaned))
	switch mode {
	case PathCheckWrite:
		if ext != LabelExt {
			return errors.NewInvalidRequest("path must have " + LabelExt + " extension")
		}
	default:
		if !slices.Contains(readableExts, ext) {
			return errors.NewInvalidRequest(fmt.Sprintf("path must have one of %v extensions", readableExts))
		}
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowedDirs, err := allowedDirs(cfg)
		if err != nil {
			return err
		}
		parentDir := filepath.Dir(absPath)
		if !slices.Contains(allowedDirs, parentDir) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", allowedDirs))
		}
		if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}

	// Symlinked files are refused even with allow_unsafe_paths.
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// allowedDirs returns the exports dir plus every absolute allowed_paths
// entry, cleaned, with symlinked entries resolved to their targets.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		out = append(out, abs)
	}
	return out, nil
}

// DefaultExportsDir returns <base dir>/exports, normally ~/.diarist/exports.
func DefaultExportsDir() (string, error) {
	base, err := config.BaseDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return filepath.Join(abs, "exports"), nil
}

func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == filepath.Separator }) {
		if part == ".." {
			return true
		}
	}
	return false
}

// SanitizeForFilename turns an audio file name into a safe file name stem.
func SanitizeForFilename(s string) string {
	s = strings.TrimSuffix(s, filepath.Ext(s))
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-. ")
	if s == "" {
		s = "unnamed"
	}
	return s
}
