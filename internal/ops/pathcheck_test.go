package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/thoughts/internal/errors"
)

func TestValidateArchivePath_Rejects(t *testing.T) {
	cfg := testConfig(t)
	exports := cfg.ExportsDir()
	if err := os.MkdirAll(filepath.Join(exports, "nested"), 0700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"parent traversal", "../backup.jsonl"},
		{"hidden traversal", exports + "/../../etc/shadow.jsonl"},
		{"wrong extension", filepath.Join(exports, "backup.json")},
		{"no extension", filepath.Join(exports, "backup")},
		{"outside exports", filepath.Join(t.TempDir(), "backup.jsonl")},
		{"subdirectory", filepath.Join(exports, "nested", "backup.jsonl")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateArchivePath(tc.path, pathWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("ValidateArchivePath(%q) = %v, want INVALID_REQUEST", tc.path, err)
			}
		})
	}
}

func TestValidateArchivePath_Accepts(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.ExportsDir(), 0700); err != nil {
		t.Fatal(err)
	}
	allowed := t.TempDir()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	for _, path := range []string{
		filepath.Join(cfg.ExportsDir(), "backup.jsonl"),
		filepath.Join(allowed, "backup.jsonl"),
	} {
		if err := ValidateArchivePath(path, pathWrite, cfg); err != nil {
			t.Errorf("ValidateArchivePath(%q) = %v", path, err)
		}
	}
}

func TestValidateArchivePath_ReadMissing(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.ExportsDir(), "missing.jsonl")

	err := ValidateArchivePath(path, pathRead, cfg)
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("got %v, want FILE_NOT_FOUND", err)
	}
}

func TestValidateArchivePath_Symlinks(t *testing.T) {
	cfg := testConfig(t)
	exports := cfg.ExportsDir()
	if err := os.MkdirAll(exports, 0700); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "target.jsonl")
	if err := os.WriteFile(target, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(exports, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidateArchivePath(link, pathRead, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("symlinked file: got %v, want INVALID_REQUEST", err)
	}

	cfg.AllowUnsafePaths = true
	if err := ValidateArchivePath(link, pathWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("symlinked file with unsafe paths: got %v, want INVALID_REQUEST", err)
	}
}

func TestValidateArchivePath_SymlinkedAllowedDir(t *testing.T) {
	cfg := testConfig(t)
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "archives")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	cfg.AllowedPaths = []string{link}

	if err := ValidateArchivePath(filepath.Join(real, "a.jsonl"), pathWrite, cfg); err != nil {
		t.Errorf("resolved allowed dir: %v", err)
	}
}

func TestValidateArchivePath_UnsafeSkipsDirectoryRule(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowUnsafePaths = true

	if err := ValidateArchivePath(filepath.Join(t.TempDir(), "anywhere.jsonl"), pathWrite, cfg); err != nil {
		t.Errorf("got %v, want nil", err)
	}
	if err := ValidateArchivePath("../up.jsonl", pathWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("traversal with unsafe paths: got %v, want INVALID_REQUEST", err)
	}
}

func TestHasParentRef(t *testing.T) {
	tests := map[string]bool{
		"a/b.jsonl":      false,
		"a/../b.jsonl":   true,
		"..":             true,
		"..foo/b.jsonl":  false,
		"a/b..c/d.jsonl": false,
	}
	for path, want := range tests {
		if got := hasParentRef(path); got != want {
			t.Errorf("hasParentRef(%q) = %v, want %v", path, got, want)
		}
	}
}
