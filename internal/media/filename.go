package media

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLength   = 50
	defaultTitle     = "image"
	defaultExtension = ".png"
)

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	extensionChars  = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)
)

// SanitizeTitle folds accents away, drops everything except ASCII letters,
// digits, spaces and hyphens, joins words with hyphens and truncates the result.
func SanitizeTitle(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	cleaned := disallowedChars.ReplaceAllString(folded, "")
	cleaned = whitespaceRuns.ReplaceAllString(strings.TrimSpace(cleaned), "-")
	if len(cleaned) > maxTitleLength {
		cleaned = cleaned[:maxTitleLength]
	}
	if cleaned == "" {
		return defaultTitle
	}
	return cleaned
}

// Extension returns the file extension of the URL path, or .png when it has none.
func Extension(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}
	ext := path.Ext(p)
	if !extensionChars.MatchString(ext) {
		return defaultExtension
	}
	return ext
}

// Filename derives the local name of the attachment at index of an item titled title.
func Filename(title string, index int, rawURL string) string {
	return SanitizeTitle(title) + "-" + strconv.Itoa(index+1) + Extension(rawURL)
}

// sourceKey identifies a remote file independent of its signed query string.
func sourceKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// withHashSuffix inserts the first 8 hex digits of the sha1 of key before the extension.
func withHashSuffix(name, key string) string {
	sum := sha1.Sum([]byte(key))
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + hex.EncodeToString(sum[:])[:8] + ext
}
