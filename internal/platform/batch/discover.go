package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoBundles is returned when the input directory holds no candidate
// bundle files.
var ErrNoBundles = errors.New("no bundles found")

// Discover lists the *.json files directly under dir, sorted by name,
// leaving out names that start with any of skipPrefixes.
func Discover(dir string, skipPrefixes []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		if hasAnyPrefix(name, skipPrefixes) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoBundles, dir)
	}
	sort.Strings(out)
	return out, nil
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
