package dispatcher

import (
	"os"
	"path/filepath"
)

// external language tags whose resource file uses a different code
var langRemap = map[string]string{
	"zh":    "zh_cn",
	"zh-TW": "zh",
}

// LanguageFile returns the resource path probed for code
func LanguageFile(dir, code string) string {
	return filepath.Join(dir, "lang-"+code+".yml")
}

// ResolveLanguage maps lang to the code of an existing language resource in dir.
// It returns an empty string when there is nothing to load.
func ResolveLanguage(dir, lang string) string {
	if lang == "" {
		return ""
	}

	code := lang
	if mapped, ok := langRemap[lang]; ok {
		code = mapped
	}

	info, err := os.Stat(LanguageFile(dir, code))
	if err != nil || info.IsDir() {
		return ""
	}

	return code
}
