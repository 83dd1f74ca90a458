package scanner

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/denormal/go-gitignore"

	appErr "github.com/wsgraph/engine/pkg/errors"
)

var ignoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	"tmp":          true,
	"out-tsc":      true,
	".angular":     true,
	".nx":          true,
	".cache":       true,
}

var sourceExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

var ignoredStemSuffixes = []string{".spec", ".test", ".stories"}

// isSourceFile reports whether name should be scanned for imports.
func isSourceFile(name string) bool {
	ext := path.Ext(name)
	if !sourceExtensions[ext] {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	if ext == ".ts" && strings.HasSuffix(stem, ".d") {
		return false
	}
	for _, suffix := range ignoredStemSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return false
		}
	}
	return true
}

// listSourceFiles returns workspace-relative source files under scanRoot in
// lexical depth-first order.
func (s *Scanner) listSourceFiles(ctx context.Context, root, scanRoot string, ignore gitignore.GitIgnore) ([]string, error) {
	var files []string
	var walk func(rel string) error
	walk = func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := s.fs.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return appErr.Wrap(err, appErr.CodeScanIO, "failed to list directory").WithMeta("path", rel)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, e := range entries {
			name := e.Name()
			child := path.Join(rel, name)
			if e.IsDir() {
				if ignoredDirs[name] || s.ignored(ignore, child, true) {
					continue
				}
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if !e.Type().IsRegular() || !isSourceFile(name) || s.ignored(ignore, child, false) {
				continue
			}
			files = append(files, child)
		}
		return nil
	}
	if err := walk(scanRoot); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Scanner) ignored(ignore gitignore.GitIgnore, rel string, isDir bool) bool {
	if ignore == nil {
		return false
	}
	match := ignore.Relative(rel, isDir)
	return match != nil && match.Ignore()
}
