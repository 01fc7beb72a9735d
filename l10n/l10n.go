// Package l10n holds the message catalogs used in event log lines and
// user-facing errors.
package l10n

import (
	"embed"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/roadrunner-server/errors"
	"gopkg.in/yaml.v3"
)

// Message keys
const (
	StateFailedMissing string = "state_failed_missing"
	StateEmailSent     string = "state_email_sent"
	ResponseError      string = "response_error"
)

const fallbackLang string = "en"

//go:embed data/*.yml
var catalogs embed.FS

var (
	cacheMu sync.Mutex
	cache   = map[string]map[string]string{}
)

// Catalog resolves message keys for a single language, falling back to English
type Catalog struct {
	lang     string
	strings  map[string]string
	fallback map[string]string
}

// Load returns the catalog for lang. Region suffixes ("de-AT", "zh_TW") are
// stripped when no exact catalog exists. Unknown languages resolve to English.
func Load(lang string) (*Catalog, error) {
	const op = errors.Op("l10n_load")

	fb, err := read(fallbackLang)
	if err != nil {
		return nil, errors.E(op, err)
	}

	c := &Catalog{lang: fallbackLang, strings: fb, fallback: fb}

	for _, candidate := range candidates(lang) {
		if !exists(candidate) {
			continue
		}
		m, err := read(candidate)
		if err != nil {
			return nil, errors.E(op, err)
		}
		c.lang = candidate
		c.strings = m
		break
	}

	return c, nil
}

// Lang returns the language the catalog was resolved to
func (c *Catalog) Lang() string {
	return c.lang
}

// GetString returns the message for key; the key itself when nothing matches
func (c *Catalog) GetString(key string) string {
	if s, ok := c.strings[key]; ok && s != "" {
		return s
	}
	if s, ok := c.fallback[key]; ok {
		return s
	}
	return key
}

func candidates(lang string) []string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return nil
	}
	out := []string{lang}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		out = append(out, lang[:i])
	}
	return out
}

func exists(lang string) bool {
	_, err := fs.Stat(catalogs, path.Join("data", lang+".yml"))
	return err == nil
}

func read(lang string) (map[string]string, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if m, ok := cache[lang]; ok {
		return m, nil
	}

	data, err := catalogs.ReadFile(path.Join("data", lang+".yml"))
	if err != nil {
		return nil, err
	}

	m := make(map[string]string)
	err = yaml.Unmarshal(data, &m)
	if err != nil {
		return nil, errors.Errorf("parse %s catalog: %v", lang, err)
	}

	cache[lang] = m
	return m, nil
}
