package run

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandPaths resolves glob patterns (with ** support) into the regular
// files they match. Plain paths are kept as given, duplicates are dropped.
func ExpandPaths(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		expanded, err := expandPattern(pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range expanded {
			if !seen[path] {
				seen[path] = true
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}

func expandPattern(pattern string) ([]string, error) {
	if !hasGlob(pattern) {
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q: %w", pattern, os.ErrNotExist)
	}
	return matches, nil
}

func hasGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
