package service

import (
	"strings"
	"unicode/utf8"
)

// sanitizeUTF8 removes invalid UTF-8 sequences from string.
// Model output ends up in the CSV ledger and the PDF, both expect valid text.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}

	return result.String()
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 3 {
		return strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	body := strings.TrimSpace(parts[1])
	if strings.HasPrefix(body, "json") {
		if idx := strings.Index(body, "\n"); idx >= 0 {
			body = body[idx+1:]
		} else {
			body = strings.TrimPrefix(body, "json")
		}
	}
	return strings.TrimSpace(body)
}

// extractJSONObject returns the outermost {...} span of s, or s unchanged.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

func fillTemplate(tmpl string, values map[string]string) string {
	out := tmpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
