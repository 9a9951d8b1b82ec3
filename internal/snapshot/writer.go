// Package snapshot persists ownership snapshots as pretty-printed JSON files.
package snapshot

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/thesandboxgame/ownership-gatherer/internal/adapter"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
)

const (
	// INDENT matches the 4-space layout of the historical snapshot files
	INDENT = "    "

	DIR_PERM  = 0o755
	FILE_PERM = 0o644
)

// Writer writes snapshot documents under a directory as <network>-<name>.json
type Writer struct {
	dir     string
	network string
	fs      adapter.FileSystem
	json    adapter.JSON
}

// NewWriter creates a Writer for one network
func NewWriter(dir, network string, fs adapter.FileSystem, json adapter.JSON) *Writer {
	return &Writer{dir: dir, network: network, fs: fs, json: json}
}

// Path returns the file a document called name is written to
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.json", w.network, name))
}

// Write renders v as canonical, indented JSON and replaces the target file
// atomically. The rendered bytes are returned so callers can store them elsewhere.
func (w *Writer) Write(name string, v any) ([]byte, error) {
	data, err := w.json.MarshalCanonicalIndent(v, INDENT)
	if err != nil {
		return nil, fmt.Errorf("failed to render snapshot %s: %w", name, err)
	}

	if err := w.fs.MkdirAll(w.dir, DIR_PERM); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	target := w.Path(name)
	tmp, err := w.fs.CreateTemp(w.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	// CreateTemp opens files as 0600
	if err := tmp.Chmod(FILE_PERM); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = w.fs.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := w.fs.Rename(tmp.Name(), target); err != nil {
		_ = w.fs.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	logger.Info("Wrote snapshot", zap.String("path", target), zap.Int("bytes", len(data)))
	return data, nil
}
