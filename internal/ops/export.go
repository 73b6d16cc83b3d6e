package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/store"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Target
	Path          string // optional, default: <exports dir>/<audio name or key>-<timestamp>.rttm
	RecordingName string // optional, default: cfg.RecordingName
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes a stored document's segments to a label file. The file is
// written to a temp name and renamed, so an existing file survives failure.
func Export(ctx context.Context, st *store.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	l, err := load(ctx, st, cfg, input.Target)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(l.record.FileName, l.key, now)
		if err != nil {
			return nil, err
		}
	}
	// Default paths are checked too: the stem comes from a user file name.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	name := input.RecordingName
	if name == "" {
		name = recordingName(cfg)
	}
	segs := l.engine.State().Segments
	text := rttm.Serialize(segs, name)
	if text != "" {
		text += "\n"
	}

	if err := writeAtomic(exportPath, []byte(text)); err != nil {
		return nil, err
	}
	return &ExportOutput{Path: exportPath, Count: len(segs), ExportedAt: now.Unix()}, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
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

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewInternal(err)
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize export file: %w", err))
	}
	success = true
	return nil
}

func defaultExportPath(fileName, key string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	stem := fileName
	if stem == "" {
		stem = key
		if len(stem) > 12 {
			stem = stem[:12]
		}
	}
	name := fmt.Sprintf("%s-%s%s", SanitizeForFilename(stem), now.Format("20060102-150405"), LabelExt)
	return filepath.Join(dir, name), nil
}
