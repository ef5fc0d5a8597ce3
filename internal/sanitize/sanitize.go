// Package sanitize neutralises injection-prone content in untrusted payloads
// decoded from JSON, query strings and path parameters.
package sanitize

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Value walks maps and slices and returns a sanitised copy. Keys starting
// with '$' or containing '.' are dropped; strings go through String. Other
// leaves are returned unchanged. It never fails.
func Value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if !KeyAllowed(k) {
				continue
			}
			out[k] = Value(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	case string:
		return String(t)
	default:
		return v
	}
}

// KeyAllowed reports whether a mapping key survives sanitisation.
func KeyAllowed(k string) bool {
	return !strings.HasPrefix(k, "$") && !strings.Contains(k, ".")
}

// String strips NUL bytes, trims surrounding whitespace and HTML-escapes
// & < > " ' and /.
func String(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)
	return htmlEscaper.Replace(s)
}
