// Package export writes exported quote documents to their destinations.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSink writes exports into a local directory.
type FileSink struct {
	dir string
}

// NewFileSink returns a sink rooted at dir. The directory is created on first write.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}

	return &FileSink{dir: dir}
}

// Name implements ports.ExportSink.
func (s *FileSink) Name() string { return "file" }

// Write replaces dir/filename atomically and returns its path.
func (s *FileSink) Write(ctx context.Context, filename string, body io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid export filename %q", filename)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filename+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing export: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing export: %w", err)
	}

	target := filepath.Join(s.dir, filename)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("moving export into place: %w", err)
	}

	return target, nil
}
