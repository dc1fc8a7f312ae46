package terminal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// Recorder captures a session's raw output to a gzip'd transcript file.
// Best-effort: recorder failures are logged by the batcher and never
// affect the session itself.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	gz   *gzip.Writer
	path string
}

// NewRecorder creates the transcript file for a session under dir.
func NewRecorder(dir, sessionID string) (*Recorder, error) {
	path := filepath.Join(dir, sessionID+".log.gz")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript %s: %w", path, err)
	}
	return &Recorder{
		file: file,
		gz:   gzip.NewWriter(file),
		path: path,
	}, nil
}

// Write appends raw output bytes to the transcript.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gz == nil {
		return 0, os.ErrClosed
	}
	return r.gz.Write(p)
}

// Close flushes and closes the transcript. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gz == nil {
		return nil
	}
	gzErr := r.gz.Close()
	fileErr := r.file.Close()
	r.gz = nil
	r.file = nil
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// Path returns the transcript file path.
func (r *Recorder) Path() string {
	return r.path
}
