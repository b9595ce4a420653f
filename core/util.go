package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStringPtr is CleanString for optional (partial update) fields.
func CleanStringPtr(s *string, lower ...bool) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanString(*s, lower...)
	return &cleaned
}

// NilIfEmpty returns nil when `s` points to an empty string. Partial updates use it to
// validate clearable fields only when they carry a value.
func NilIfEmpty(s *string) *string {
	if s != nil && *s == "" {
		return nil
	}
	return s
}
