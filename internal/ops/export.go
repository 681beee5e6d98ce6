package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/hpungsan/thoughts/internal/config"
	"github.com/hpungsan/thoughts/internal/errors"
	"github.com/hpungsan/thoughts/internal/journal"
	"github.com/hpungsan/thoughts/internal/note"
)

// ExportSchemaVersion is written to the header line of every archive.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <base>/exports/thoughts-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Notes      int    `json:"notes"`
	Operations int    `json:"operations"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes every note, oldest first, with its journal to a JSONL archive.
// The file is written to a temporary name and renamed into place, so an
// existing archive survives a failed export.
func Export(ctx context.Context, store journal.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	path := input.Path
	if path == "" {
		path = filepath.Join(cfg.ExportsDir(), fmt.Sprintf("thoughts-%s%s", now.Format("2006-01-02T150405"), ArchiveExt))
	}
	if err := ValidateArchivePath(path, pathWrite, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	notes, err := store.ListNotes(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	slices.Reverse(notes)

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := createArchive(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)

	header := note.ExportRecord{
		ThoughtsExport: true,
		SchemaVersion:  ExportSchemaVersion,
		ExportedAt:     now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{Path: path, ExportedAt: now.Unix()}
	for _, n := range notes {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		ops, err := store.List(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		if err := enc.Encode(note.ToExportRecord(&n, ops)); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Notes++
		out.Operations += len(ops)
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if isSymlink(path) {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}
	// os.Rename cannot replace an existing file on Windows; keep the old one.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return out, nil
}
