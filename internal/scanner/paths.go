package scanner

import (
	"path"
	"sort"
	"strings"

	"github.com/wsgraph/engine/internal/snapshot"
)

// normalizePath converts p to a clean, slash-separated, workspace-relative
// path. The workspace root itself is "". ok is false for absolute paths and
// paths that escape the root.
func normalizePath(p string) (string, bool) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if path.IsAbs(p) || hasDriveLetter(p) {
		return "", false
	}
	p = path.Clean(p)
	switch {
	case p == ".":
		return "", true
	case p == "..", strings.HasPrefix(p, "../"):
		return "", false
	}
	return p, true
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// under reports whether rel is root or lies beneath it.
func under(rel, root string) bool {
	return root == "" || rel == root || strings.HasPrefix(rel, root+"/")
}

// ownerIndex finds the project owning a path by longest root prefix.
type ownerIndex struct {
	projects []snapshot.Project
	roots    map[string]string
}

func newOwnerIndex(projects []snapshot.Project) *ownerIndex {
	sorted := append([]snapshot.Project(nil), projects...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].RootPath) != len(sorted[j].RootPath) {
			return len(sorted[i].RootPath) > len(sorted[j].RootPath)
		}
		return sorted[i].Name < sorted[j].Name
	})
	roots := make(map[string]string, len(projects))
	for _, p := range projects {
		roots[p.Name] = p.RootPath
	}
	return &ownerIndex{projects: sorted, roots: roots}
}

// nestedIn reports whether project name lives strictly inside p's root.
func (o *ownerIndex) nestedIn(name string, p snapshot.Project) bool {
	root, ok := o.roots[name]
	return ok && root != p.RootPath && under(root, p.RootPath)
}

// ownerOf returns the name of the project owning rel, ties broken by name.
func (o *ownerIndex) ownerOf(rel string) (string, bool) {
	for _, p := range o.projects {
		if under(rel, p.RootPath) {
			return p.Name, true
		}
	}
	return "", false
}
