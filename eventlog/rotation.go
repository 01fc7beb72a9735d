package eventlog

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/roadrunner-plugins/mailer/internal/timefmt"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

// Rotation actions (core.log_rotation_action)
const (
	ActionDelete  string = "Delete"
	ActionArchive string = "Archive"
)

// Rotator prunes the files a log path template has produced
type Rotator interface {
	Rotate(template string) error
}

// FileRotator keeps at most Limit files matching a template; older ones are
// deleted or gzip-archived depending on Action. Limit 0 disables rotation.
type FileRotator struct {
	Base   string
	Limit  int
	Action string
	log    *zap.Logger
}

// NewFileRotator creates a rotator for log files anchored at base
func NewFileRotator(base string, limit int, action string, log *zap.Logger) *FileRotator {
	return &FileRotator{
		Base:   base,
		Limit:  limit,
		Action: action,
		log:    log,
	}
}

type logFile struct {
	path string
	info os.FileInfo
}

// Rotate implements Rotator
func (r *FileRotator) Rotate(template string) error {
	const op = errors.Op("mailer_eventlog_rotate")

	if r.Limit <= 0 || (r.Action != ActionDelete && r.Action != ActionArchive) {
		return nil
	}

	pattern := filepath.FromSlash(timefmt.Glob(template))
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(r.Base, pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return errors.E(op, err)
	}

	files := make([]logFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, logFile{path: m, info: info})
	}

	if len(files) <= r.Limit {
		return nil
	}

	// oldest first
	sort.Slice(files, func(i, j int) bool {
		if files[i].info.ModTime().Equal(files[j].info.ModTime()) {
			return files[i].path < files[j].path
		}
		return files[i].info.ModTime().Before(files[j].info.ModTime())
	})

	surplus := len(files) - r.Limit
	removed := 0
	for _, f := range files[:surplus] {
		if r.Action == ActionArchive {
			err = archive(f.path)
			if err != nil {
				r.log.Warn("failed to archive log file", zap.String("path", f.path), zap.Error(err))
				continue
			}
		}

		err = os.Remove(f.path)
		if err != nil {
			r.log.Warn("failed to remove log file", zap.String("path", f.path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		r.log.Debug("log rotation completed", zap.String("action", strings.ToLower(r.Action)), zap.Int("files", removed))
	}

	return nil
}

// archive writes path.gz next to path
func archive(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(path+".gz", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	zw, err := gzip.NewWriterLevel(dst, gzip.BestCompression)
	if err != nil {
		_ = dst.Close()
		return err
	}
	zw.Name = filepath.Base(path)

	_, err = io.Copy(zw, src)
	if err != nil {
		_ = zw.Close()
		_ = dst.Close()
		return err
	}

	err = zw.Close()
	if err != nil {
		_ = dst.Close()
		return err
	}

	return dst.Close()
}
