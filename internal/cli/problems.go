package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// loadProblems reads a problem corpus from one JSON file. Two shapes are
// accepted: a bare object mapping problem ID to text, or a wrapped
// {"problems": {...}} object.
func loadProblems(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Problems map[string]string `json:"problems"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Problems) > 0 {
		return wrapped.Problems, nil
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("failed to parse problems file %s: %w", path, err)
	}
	return flat, nil
}

// globProblems collects problems from every file matching the pattern.
// Duplicate IDs across files are an error rather than a silent overwrite.
func globProblems(pattern string) (map[string]string, error) {
	base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.Glob(os.DirFS(base), pat)
	if err != nil {
		return nil, fmt.Errorf("invalid problems pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)

	problems := make(map[string]string)
	for _, m := range matches {
		path := filepath.Join(base, filepath.FromSlash(m))
		loaded, err := loadProblems(path)
		if err != nil {
			return nil, err
		}
		for id, text := range loaded {
			if _, dup := problems[id]; dup {
				return nil, fmt.Errorf("duplicate problem ID %q in %s", id, path)
			}
			problems[id] = text
		}
	}
	return problems, nil
}
