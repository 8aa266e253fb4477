package kb

import "strings"

const sanitizeMaxLen = 50

// SanitizeDataSource turns a URL or descriptor into the middle segment of a
// backend id. Deterministic: the same data source always yields the same
// segment. Dots become underscores, slashes become dots, dashes become
// underscores, anything outside [a-z0-9._-] is dropped, the result is
// truncated to 50 characters and trimmed of leading/trailing punctuation.
func SanitizeDataSource(dataSource string) string {
	s := dataSource
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")

	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", ".")
	s = strings.ReplaceAll(s, "-", "_")

	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) > sanitizeMaxLen {
		s = s[:sanitizeMaxLen]
	}

	return strings.Trim(s, "._-")
}
