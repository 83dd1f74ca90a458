package scanner

import (
	"path"
	"strings"
)

// resolver maps import specifiers to owning projects.
type resolver struct {
	owners *ownerIndex
	rules  []AliasRule
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// resolve returns the project a specifier imported from fromFile points at.
// External packages and paths escaping the workspace resolve to nothing.
func (r *resolver) resolve(fromFile, spec string) (string, bool) {
	if isRelative(spec) {
		target, ok := normalizePath(path.Join(path.Dir(fromFile), spec))
		if !ok {
			return "", false
		}
		return r.owners.ownerOf(target)
	}
	for _, rule := range r.rules {
		if rule.Matches(spec) {
			return rule.Project, true
		}
	}
	return "", false
}

// targetsOf resolves every specifier of a file, dropping self references.
func (r *resolver) targetsOf(project, fromFile string, specs []string) []string {
	var out []string
	for _, spec := range specs {
		target, ok := r.resolve(fromFile, spec)
		if !ok || target == project {
			continue
		}
		out = append(out, target)
	}
	return out
}
