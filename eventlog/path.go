package eventlog

import (
	"os"
	"path/filepath"
	"time"

	"github.com/roadrunner-plugins/mailer/internal/timefmt"
	"github.com/roadrunner-server/errors"
)

// PathBuilder resolves a configured path template to an absolute, writable path
type PathBuilder interface {
	Build(template string) (string, error)
}

// DirBuilder renders time placeholders, anchors relative paths at Base and
// creates missing parent directories.
type DirBuilder struct {
	Base string
	Now  func() time.Time
}

// Build implements PathBuilder
func (b *DirBuilder) Build(template string) (string, error) {
	const op = errors.Op("mailer_eventlog_build_path")

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	path := filepath.FromSlash(timefmt.Format(now(), template))
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.Base, path)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", errors.E(op, err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return "", errors.E(op, err)
	}

	return path, nil
}
