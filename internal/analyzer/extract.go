package analyzer

import "strings"

// ExtractJSONObject returns the first complete top-level JSON object in s.
// Model replies often wrap the object in prose or markdown fences, so the
// scanner walks the text tracking brace depth, and inside string literals
// it honors escape sequences so that braces and quotes embedded in strings
// never affect the depth count.
func ExtractJSONObject(s string) (string, bool) {
	// Prefer an explicit ```json fence when the model used one.
	if fenced, ok := extractFenced(s); ok {
		s = fenced
	}

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			// Quotes outside any object are prose, not JSON strings.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// extractFenced returns the body of the first ```json (or bare ```) fence.
func extractFenced(s string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		open := strings.Index(s, marker)
		if open < 0 {
			continue
		}
		rest := s[open+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return rest[:end], true
	}
	return "", false
}
