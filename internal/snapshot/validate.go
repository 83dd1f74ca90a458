package snapshot

import (
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// Validate checks the structural invariants a submitted snapshot must hold.
func (s *Snapshot) Validate() error {
	if s == nil {
		return appErr.New(appErr.CodeValidation, "snapshot is required")
	}
	if s.SchemaVersion != SchemaVersion {
		return appErr.Newf(appErr.CodeValidation, "unsupported snapshot schemaVersion %d", s.SchemaVersion).
			WithMeta("schemaVersion", s.SchemaVersion)
	}

	known := make(map[string]ProjectType, len(s.Projects))
	for _, p := range s.Projects {
		if p.Name == "" {
			return appErr.New(appErr.CodeValidation, "project name must not be empty")
		}
		if _, dup := known[p.Name]; dup {
			return appErr.Newf(appErr.CodeValidation, "duplicate project %q", p.Name).WithMeta("project", p.Name)
		}
		if !p.Type.Valid() {
			return appErr.Newf(appErr.CodeValidation, "project %q has invalid type %q", p.Name, p.Type).
				WithMeta("project", p.Name)
		}
		known[p.Name] = p.Type
		for _, d := range p.Dependencies {
			if d == p.Name {
				return appErr.Newf(appErr.CodeValidation, "project %q depends on itself", p.Name).WithMeta("project", p.Name)
			}
		}
	}

	for _, l := range s.Libs {
		if t, ok := known[l.Name]; !ok || t != TypeLibrary {
			return appErr.Newf(appErr.CodeValidation, "lib %q is not a known library project", l.Name).
				WithMeta("project", l.Name)
		}
	}

	for _, c := range s.Components {
		if _, ok := known[c.Project]; !ok {
			return appErr.Newf(appErr.CodeValidation, "component %q references unknown project %q", c.FilePath, c.Project).
				WithMeta("project", c.Project)
		}
		if c.FilePath == "" {
			return appErr.Newf(appErr.CodeValidation, "component in project %q has no filePath", c.Project)
		}
	}

	for _, e := range s.Dependencies {
		if e.SourceProject == e.TargetProject {
			return appErr.Newf(appErr.CodeValidation, "self edge on project %q", e.SourceProject).
				WithMeta("project", e.SourceProject)
		}
		for _, name := range []string{e.SourceProject, e.TargetProject} {
			if _, ok := known[name]; !ok {
				return appErr.Newf(appErr.CodeValidation, "edge references unknown project %q", name).
					WithMeta("project", name)
			}
		}
	}
	return nil
}
