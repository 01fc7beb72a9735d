// Package eventlog appends delivery results to the mailer event log.
package eventlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// Config for the event log writer
type Config struct {
	// Path template (event_log); empty disables logging
	Path string

	// Truncate is the size in bytes at which the log is started over; 0 disables
	Truncate uint64
}

// Writer appends one line per call to the event log
type Writer struct {
	mu      sync.Mutex
	cfg     Config
	paths   PathBuilder
	rotator Rotator
	log     *zap.Logger
}

// NewWriter creates a writer. paths and rotator are usually a *DirBuilder and a *FileRotator.
func NewWriter(cfg Config, paths PathBuilder, rotator Rotator, log *zap.Logger) *Writer {
	return &Writer{
		cfg:     cfg,
		paths:   paths,
		rotator: rotator,
		log:     log,
	}
}

// Write stores line verbatim. It returns false when logging is disabled or the
// line could not be written.
func (w *Writer) Write(line string) bool {
	if w.cfg.Path == "" {
		return false
	}

	path, err := w.paths.Build(w.cfg.Path)
	if err != nil {
		w.log.Warn("failed to build event log path", zap.String("template", w.cfg.Path), zap.Error(err))
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	truncate := w.truncateMode(path)

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if truncate {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	if !w.writeFile(path, flags, line) {
		return false
	}

	if truncate && w.rotator != nil {
		err = w.rotator.Rotate(w.cfg.Path)
		if err != nil {
			w.log.Warn("event log rotation failed", zap.String("template", w.cfg.Path), zap.Error(err))
		}
	}

	return true
}

// truncateMode reports whether the next write starts the file over
func (w *Writer) truncateMode(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return w.cfg.Truncate > 0 && uint64(info.Size()) >= w.cfg.Truncate
}

func (w *Writer) writeFile(path string, flags int, line string) bool {
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		w.log.Error("failed to open event log", zap.String("path", path), zap.Error(err))
		return false
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			w.log.Warn("failed to close event log", zap.String("path", path), zap.Error(cerr))
		}
	}()

	_, err = f.WriteString(line)
	if err != nil {
		w.log.Error("failed to write event log", zap.String("path", path), zap.Error(err))
		return false
	}

	return true
}
