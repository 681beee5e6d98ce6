//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/thoughts/internal/errors"
)

// createArchive opens path for writing. Windows has no O_NOFOLLOW;
// ValidateArchivePath has already refused symlinks.
func createArchive(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

func openArchive(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
