package subtitle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const adjustedMarker = ".adjusted"

// ErrAlreadyAdjusted marks an input that is itself reflow output.
var ErrAlreadyAdjusted = errors.New("subtitle already adjusted")

// ErrLocked is returned when another process is writing the same output.
var ErrLocked = errors.New("output file is locked by another process")

// AdjustedPath replaces the extension of path with ".adjusted<ext>".
func AdjustedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + adjustedMarker + ext
}

// IsAdjusted reports whether path already carries the ".adjusted<ext>" suffix.
func IsAdjusted(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasSuffix(strings.ToLower(strings.TrimSuffix(path, ext)), adjustedMarker)
}

// Read opens path and decodes it using the format implied by its extension.
func Read(path string) ([]Cue, Format, error) {
	if IsAdjusted(path) {
		return nil, "", fmt.Errorf("%s: %w", path, ErrAlreadyAdjusted)
	}
	format, err := FormatForPath(path)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open subtitle: %w", err)
	}
	defer file.Close()

	cues, err := Decode(file, format)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return cues, format, nil
}

// Write renders cues to path. The file is replaced atomically while an
// exclusive lock on path+".lock" is held.
func Write(path string, cues []Cue) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(cues, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrLocked)
	}
	defer func() { _ = lock.Unlock() }()

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
