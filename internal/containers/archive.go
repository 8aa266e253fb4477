package containers

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"time"
)

// InjectFile is a single file to be placed into a container via PutArchive.
// Path is relative to the extraction root.
type InjectFile struct {
	Path    string
	Content []byte
}

// TarStream builds an in-memory single-file tar archive.
func (f InjectFile) TarStream() (io.Reader, error) {
	var buf bytes.Buffer
	writer := tar.NewWriter(&buf)

	header := &tar.Header{
		Name:    f.Path,
		Mode:    0644,
		Size:    int64(len(f.Content)),
		ModTime: time.Now(),
	}
	if err := writer.WriteHeader(header); err != nil {
		return nil, fmt.Errorf("failed to write archive header for %s: %w", f.Path, err)
	}
	if _, err := writer.Write(f.Content); err != nil {
		return nil, fmt.Errorf("failed to write archive content for %s: %w", f.Path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive for %s: %w", f.Path, err)
	}

	return &buf, nil
}
