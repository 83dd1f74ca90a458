// Package snapshot defines the workspace graph produced by a scan and the
// canonical ordering every consumer relies on.
package snapshot

import (
	"sort"
)

// SchemaVersion is the only snapshot schema this module produces or accepts.
const SchemaVersion = 1

// ProjectType classifies a project.
type ProjectType string

const (
	TypeApplication ProjectType = "application"
	TypeLibrary     ProjectType = "library"
)

// Valid reports whether t is a known project type.
func (t ProjectType) Valid() bool {
	return t == TypeApplication || t == TypeLibrary
}

// Project is one registry entry after resolution.
type Project struct {
	Name           string      `json:"name" validate:"required"`
	Type           ProjectType `json:"type" validate:"required,oneof=application library"`
	RootPath       string      `json:"rootPath"`
	SourceRootPath string      `json:"sourceRootPath,omitempty"`
	ConfigFilePath string      `json:"configFilePath"`
	Dependencies   []string    `json:"dependencies"`
}

// Component is a source file carrying a component declaration.
type Component struct {
	Name         string   `json:"name" validate:"required"`
	ClassName    string   `json:"className,omitempty"`
	Selector     string   `json:"selector,omitempty"`
	Standalone   *bool    `json:"standalone,omitempty"`
	Project      string   `json:"project" validate:"required"`
	FilePath     string   `json:"filePath" validate:"required"`
	Dependencies []string `json:"dependencies"`
}

// Edge is a project-to-project dependency with the files that induced it.
type Edge struct {
	SourceProject string   `json:"sourceProject" validate:"required"`
	TargetProject string   `json:"targetProject" validate:"required"`
	ViaFiles      []string `json:"viaFiles"`
}

// Snapshot is the deterministic graph of a workspace.
type Snapshot struct {
	SchemaVersion       int         `json:"schemaVersion"`
	WorkspaceConfigPath string      `json:"workspaceConfigPath"`
	Projects            []Project   `json:"projects" validate:"dive"`
	Libs                []Project   `json:"libs" validate:"dive"`
	Components          []Component `json:"components" validate:"dive"`
	Dependencies        []Edge      `json:"dependencies" validate:"dive"`
}

// Assemble builds a canonical snapshot. Libs are derived from projects.
func Assemble(configPath string, projects []Project, components []Component, edges []Edge) *Snapshot {
	s := &Snapshot{
		SchemaVersion:       SchemaVersion,
		WorkspaceConfigPath: configPath,
		Projects:            projects,
		Components:          components,
		Dependencies:        edges,
	}
	for _, p := range projects {
		if p.Type == TypeLibrary {
			s.Libs = append(s.Libs, p)
		}
	}
	s.Canonicalize()
	return s
}

// Canonicalize sorts and deduplicates every collection in place. Self
// references are removed. The result never contains nil slices so the JSON
// form is stable.
func (s *Snapshot) Canonicalize() {
	s.Projects = canonicalProjects(s.Projects)
	s.Libs = canonicalProjects(s.Libs)

	comps := make([]Component, 0, len(s.Components))
	for _, c := range s.Components {
		c.Dependencies = without(SortedUnique(c.Dependencies), c.Project)
		comps = append(comps, c)
	}
	sort.SliceStable(comps, func(i, j int) bool {
		a, b := comps[i], comps[j]
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Name < b.Name
	})
	s.Components = dedupeComponents(comps)

	byPair := make(map[[2]string]int)
	edges := make([]Edge, 0, len(s.Dependencies))
	for _, e := range s.Dependencies {
		if e.SourceProject == e.TargetProject {
			continue
		}
		key := [2]string{e.SourceProject, e.TargetProject}
		if i, ok := byPair[key]; ok {
			edges[i].ViaFiles = append(edges[i].ViaFiles, e.ViaFiles...)
			continue
		}
		byPair[key] = len(edges)
		e.ViaFiles = append([]string(nil), e.ViaFiles...)
		edges = append(edges, e)
	}
	for i := range edges {
		edges[i].ViaFiles = SortedUnique(edges[i].ViaFiles)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceProject != edges[j].SourceProject {
			return edges[i].SourceProject < edges[j].SourceProject
		}
		return edges[i].TargetProject < edges[j].TargetProject
	})
	s.Dependencies = edges
}

// Counts summarizes collection sizes for run bookkeeping.
type Counts struct {
	Projects     int
	Libs         int
	Components   int
	Dependencies int
}

// Counts returns the collection sizes.
func (s *Snapshot) Counts() Counts {
	return Counts{
		Projects:     len(s.Projects),
		Libs:         len(s.Libs),
		Components:   len(s.Components),
		Dependencies: len(s.Dependencies),
	}
}

func canonicalProjects(in []Project) []Project {
	out := make([]Project, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p.Dependencies = without(SortedUnique(p.Dependencies), p.Name)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	uniq := out[:0]
	for _, p := range out {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		uniq = append(uniq, p)
	}
	return uniq
}

func dedupeComponents(in []Component) []Component {
	out := make([]Component, 0, len(in))
	for _, c := range in {
		if n := len(out); n > 0 && out[n-1].Project == c.Project && out[n-1].FilePath == c.FilePath {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortedUnique returns a sorted copy of in without duplicates. Never nil.
func SortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func without(in []string, drop string) []string {
	out := in[:0]
	for _, v := range in {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
