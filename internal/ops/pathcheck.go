package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/errors"
)

// pathMode says whether an archive path is about to be read or written.
type pathMode int

const (
	pathRead pathMode = iota
	pathWrite
)

// ArchiveExt is the required extension for export archives.
const ArchiveExt = ".jsonl"

// ValidateArchivePath checks an import/export path before it is opened.
//
// The file must end in .jsonl, must not traverse upwards, must not be a symlink
// and must sit directly inside <base>/exports or one of cfg.AllowedPaths.
// Nested directories are refused so the only component left to race on is the
// final one, which the open helpers guard with O_NOFOLLOW.
// AllowUnsafePaths lifts the directory rule only.
func ValidateArchivePath(path string, mode pathMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if hasParentRef(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ArchiveExt {
		return errors.NewInvalidRequest("path must have " + ArchiveExt + " extension")
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		dirs, err := archiveDirs(cfg)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !slices.Contains(dirs, parent) {
			return errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", dirs))
		}
		if isSymlink(parent) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == pathRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(absPath) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// archiveDirs returns the absolute directories archives may live in, with
// symlinked allowed_paths entries resolved to their targets.
func archiveDirs(cfg *config.Config) ([]string, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.BaseDir == "" {
		base, err := config.BaseDir()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		c := *cfg
		c.BaseDir = base
		cfg = &c
	}

	candidates := []string{cfg.ExportsDir()}
	for _, p := range cfg.AllowedPaths {
		if filepath.IsAbs(p) {
			candidates = append(candidates, p)
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, d := range candidates {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasParentRef reports whether any component of path is "..", splitting on
// both the OS separator and '/'.
func hasParentRef(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
