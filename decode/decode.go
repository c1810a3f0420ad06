package decode

import (
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Bytes decodes a URL-safe base64 blob as emitted by the Gmail API. The API
// usually omits padding, but tokens copied from other tooling may carry it,
// so both forms are accepted.
func Bytes(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}

	raw, rawErr := base64.RawURLEncoding.DecodeString(data)
	if rawErr != nil {
		return nil, fmt.Errorf("base64url decode: %w", err)
	}
	return raw, nil
}

// Body decodes an encoded body blob into text. Malformed base64 and byte
// sequences that are not valid UTF-8 both yield an empty string rather than
// an error: a leaf that cannot be decoded simply contributes no text. The
// failure detail only goes to the debug log.
func Body(data string) string {
	raw, err := Bytes(data)
	if err != nil {
		slog.Debug("body decode failed", "err", err)
		return ""
	}
	if len(raw) == 0 {
		return ""
	}
	if !utf8.Valid(raw) {
		slog.Debug("body decode failed", "err", "not valid utf-8")
		return ""
	}
	return string(raw)
}

var (
	lineBreakRe  = regexp.MustCompile(`\r\n|\r|\n`)
	blankRunRe   = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe   = regexp.MustCompile(` {2,}`)
	leadingNumRe = regexp.MustCompile(`^\d+\s+`)
)

// Normalize canonicalizes decoded body text. The rules run in a fixed order;
// later rules assume the earlier ones already applied.
func Normalize(text string) string {
	text = html.UnescapeString(text)
	text = lineBreakRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = stripLeadingNumber(text)
	return text
}

// stripLeadingNumber removes one numeric header (digits plus whitespace) from
// the very start of the text. Some mail clients prepend list or quote
// counters there. Applies at most once per call.
func stripLeadingNumber(text string) string {
	return leadingNumRe.ReplaceAllString(text, "")
}
