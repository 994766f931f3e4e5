// Package discovery locates credential files relative to the working directory.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

// DropInDir holds one credential file per batch of accounts, read in lexical order.
const DropInDir = "accounts.d"

// AccountFiles returns credential file paths relative to root when possible.
// Explicit paths are validated and returned in the order given. Otherwise the
// defaults that exist are returned, followed by DropInDir/*.txt sorted
// lexicographically. An empty result is not an error: the environment may
// still carry credentials.
func AccountFiles(root string, explicit, defaults []string) ([]string, error) {
	if len(explicit) > 0 {
		return resolveExplicit(root, explicit)
	}

	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		rel := mustRelOrClean(root, p)
		if _, ok := seen[rel]; ok {
			return
		}
		seen[rel] = struct{}{}
		paths = append(paths, rel)
	}

	for _, candidate := range defaults {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		full := absolute(root, candidate)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			add(full)
		}
	}

	pattern := filepath.Join(root, DropInDir, "*.txt")
	found, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(found)
	for _, m := range found {
		add(m)
	}

	return paths, nil
}

// Resolve returns the path to open for a file returned by AccountFiles.
func Resolve(root, path string) string {
	return absolute(root, path)
}

func resolveExplicit(root string, explicit []string) ([]string, error) {
	seen := make(map[string]struct{})
	resolved := make([]string, 0, len(explicit))
	for _, input := range explicit {
		cleaned := absolute(root, input)
		info, err := os.Stat(cleaned)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, checkinerrors.Configf("accounts file %q not found", input)
			}
			return nil, fmt.Errorf("stat %q: %w", input, err)
		}
		if info.IsDir() {
			return nil, checkinerrors.Configf("accounts file %q is a directory", input)
		}
		rel := mustRelOrClean(root, cleaned)
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		resolved = append(resolved, rel)
	}
	return resolved, nil
}

func absolute(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func mustRelOrClean(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Clean(path)
	}
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}
