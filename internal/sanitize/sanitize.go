// Package sanitize normalizes and cleans untrusted form input before it
// reaches persistence or outbound email. HTML handling is allowlist-based:
// the strict policy strips all markup, the rich policy keeps the common
// formatting tags and drops scripts, embeds, and event handlers.
package sanitize

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// plainTextMax bounds free-form fields without a dedicated strategy.
const plainTextMax = 500

var (
	strictPolicy = bluemonday.StrictPolicy()
	richPolicy   = bluemonday.UGCPolicy()
)

// Email lower-cases, trims, and strips characters that could break out of
// an address context.
func Email(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '\'', '"':
			return -1
		}
		return r
	}, s)
}

// Phone retains only digits and the formatting characters + - ( ).
func Phone(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		switch r {
		case '+', '-', '(', ')':
			return r
		}
		return -1
	}, strings.TrimSpace(s))
}

// URL returns the input only if it parses as an absolute http(s) URL;
// anything else is emptied rather than repaired.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}

	return u.String()
}

// Message strips all markup from a free-text field while preserving line
// breaks, then unescapes entities so plain text round-trips unchanged.
func Message(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// PlainText strips markup and truncates to the generic field cap. The cut
// lands on a rune boundary so a multi-byte character is dropped whole
// rather than leaving invalid UTF-8 behind.
func PlainText(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(strings.TrimSpace(s)))
	if len(s) > plainTextMax {
		cut := plainTextMax
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// RichText runs content through the allowlist policy: common formatting
// markup survives, scripts, iframes, objects, inline handlers, and
// javascript:/data: URLs do not.
func RichText(s string) string {
	return richPolicy.Sanitize(s)
}

// FormData sanitizes an arbitrary decoded JSON object. The strategy for
// each string field is chosen by field-name heuristics; nested objects and
// arrays are walked recursively; numbers and booleans pass through.
func FormData(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		out[key] = sanitizeValue(key, value)
	}
	return out
}

func sanitizeValue(key string, value any) any {
	switch v := value.(type) {
	case string:
		return sanitizeString(key, v)
	case map[string]any:
		return FormData(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(key, item)
		}
		return out
	default:
		// numbers, booleans, nil
		return value
	}
}

func sanitizeString(key, value string) string {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "email"):
		return Email(value)
	case strings.Contains(k, "phone"):
		return Phone(value)
	case strings.Contains(k, "url"), strings.Contains(k, "website"):
		return URL(value)
	case strings.Contains(k, "message"), strings.Contains(k, "description"), strings.Contains(k, "comment"):
		return Message(value)
	case strings.Contains(k, "content"), strings.Contains(k, "body"):
		return RichText(value)
	default:
		return PlainText(value)
	}
}
