// Package timefmt renders the host's brace-style time placeholders
// ("{yyyy}-{mm}-{dd}") used by time_format and log path templates.
package timefmt

import (
	"strings"
	"time"
)

// DefaultLayout is used when core.time_format is empty
const DefaultLayout string = "{Day}, {dd} {Mon} {yyyy} {hh}:{ii}:{ss} {tz}"

var placeholders = []string{
	"{Day}", "{Mon}", "{yyyy}", "{yy}", "{mm}", "{m}", "{dd}", "{d}",
	"{hh}", "{ii}", "{ss}", "{tz}", "{t:z}",
}

// Format replaces every known placeholder in layout with the matching part of t
func Format(t time.Time, layout string) string {
	if !strings.Contains(layout, "{") {
		return layout
	}

	r := strings.NewReplacer(
		"{Day}", t.Format("Mon"),
		"{Mon}", t.Format("Jan"),
		"{yyyy}", t.Format("2006"),
		"{yy}", t.Format("06"),
		"{mm}", t.Format("01"),
		"{m}", t.Format("1"),
		"{dd}", t.Format("02"),
		"{d}", t.Format("2"),
		"{hh}", t.Format("15"),
		"{ii}", t.Format("04"),
		"{ss}", t.Format("05"),
		"{tz}", t.Format("-0700"),
		"{t:z}", t.Format("-07:00"),
	)
	return r.Replace(layout)
}

// HasPlaceholders reports whether layout would change under Format
func HasPlaceholders(layout string) bool {
	for _, p := range placeholders {
		if strings.Contains(layout, p) {
			return true
		}
	}
	return false
}

// Glob turns a layout into a filepath.Match pattern matching every rendering of it
func Glob(layout string) string {
	pairs := make([]string, 0, len(placeholders)*2)
	for _, p := range placeholders {
		pairs = append(pairs, p, "*")
	}
	return strings.NewReplacer(pairs...).Replace(layout)
}
