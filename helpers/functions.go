package helpers

import (
	"regexp"
	"strings"
)

// Chunk splits s into consecutive slices of at most size elements.
func Chunk[T any](s []T, size int) [][]T {
	if size <= 0 {
		size = len(s)
	}

	var chunks [][]T
	for size < len(s) {
		s, chunks = s[size:], append(chunks, s[0:size:size])
	}
	if len(s) > 0 {
		chunks = append(chunks, s)
	}
	return chunks
}

// Dedupe keeps the first occurrence of every element.
func Dedupe[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var spacesRegex = regexp.MustCompile(`\s+`)

func CleanUpQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(spacesRegex.ReplaceAllString(query, " ")))
}
