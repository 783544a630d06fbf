package common

import (
	"strconv"
	"strings"
)

// ParseAppID converts a contract identifier stored as text back into its
// numeric form. Identifiers are kept as strings end to end to avoid
// precision loss in downstream JSON consumers.
func ParseAppID(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 10, 64)
}

// FormatAppID renders a numeric contract identifier as the canonical text
// form used as a database key.
func FormatAppID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
