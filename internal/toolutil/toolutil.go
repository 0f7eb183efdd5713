// Package toolutil provides shared input helpers for go_research MCP tools.
package toolutil

import (
	"fmt"
	"strings"
)

// NormLang normalises a language field: empty string → "en".
func NormLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "en"
	}
	return lang
}

// Bound returns def for n <= 0 and caps n at limit.
func Bound(n, def, limit int) int {
	if n <= 0 {
		n = def
	}
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// Required returns an error naming field when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
