package observability

import "unicode"

const maxFieldLength = 256

// sanitizeString strips control characters and caps length so request-derived
// values cannot inject structure into log output. Newlines collapse to spaces.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = maxFieldLength
	}

	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		switch {
		case r == '\n' || r == '\r':
			cleaned = append(cleaned, ' ')
		case unicode.IsControl(r) && r != '\t':
			continue
		default:
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return string(cleaned)
}

// SanitizeRoute bounds chi route patterns before they reach logs or spans.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod bounds the HTTP method string.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeUserID caps identifiers logged for request attribution.
func SanitizeUserID(uid string) string {
	if len(uid) == 0 {
		return ""
	}
	return sanitizeString(uid, 64)
}
