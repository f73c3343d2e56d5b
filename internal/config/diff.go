package config

import (
	"strings"

	"github.com/google/go-cmp/cmp"
)

// DiffSerialized returns a line diff between two serialized configuration payloads.
func DiffSerialized(previous, current []byte) string {
	return cmp.Diff(splitLines(previous), splitLines(current))
}

// DiffSettings returns a field-level diff between two decoded configurations,
// or "" when they are equivalent.
func DiffSettings(previous, current *Config) string {
	if previous == nil || current == nil {
		if previous == current {
			return ""
		}
		return cmp.Diff(previous, current)
	}
	return cmp.Diff(*previous, *current)
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
