package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/wsgraph/engine/internal/snapshot"
)

// GraphRows are the child rows of one version.
type GraphRows struct {
	Projects     []GraphProject
	Components   []GraphComponent
	Dependencies []GraphDependency
}

// RowsFromSnapshot converts a canonical snapshot into rows owned by versionID.
func RowsFromSnapshot(versionID uuid.UUID, s *snapshot.Snapshot) GraphRows {
	rows := GraphRows{
		Projects:     make([]GraphProject, 0, len(s.Projects)),
		Components:   make([]GraphComponent, 0, len(s.Components)),
		Dependencies: make([]GraphDependency, 0, len(s.Dependencies)),
	}
	for _, p := range s.Projects {
		rows.Projects = append(rows.Projects, GraphProject{
			VersionID:      versionID,
			Name:           p.Name,
			Type:           string(p.Type),
			RootPath:       p.RootPath,
			SourceRootPath: p.SourceRootPath,
			ConfigFilePath: p.ConfigFilePath,
			Dependencies:   append(datatypes.JSONSlice[string]{}, p.Dependencies...),
		})
	}
	for _, c := range s.Components {
		rows.Components = append(rows.Components, GraphComponent{
			VersionID:    versionID,
			Project:      c.Project,
			FilePath:     c.FilePath,
			Name:         c.Name,
			ClassName:    c.ClassName,
			Selector:     c.Selector,
			Standalone:   c.Standalone,
			Dependencies: append(datatypes.JSONSlice[string]{}, c.Dependencies...),
		})
	}
	for _, e := range s.Dependencies {
		rows.Dependencies = append(rows.Dependencies, GraphDependency{
			VersionID:     versionID,
			SourceProject: e.SourceProject,
			TargetProject: e.TargetProject,
			ViaFiles:      append(datatypes.JSONSlice[string]{}, e.ViaFiles...),
		})
	}
	return rows
}

// Snapshot rebuilds the canonical snapshot stored under a version.
func (r GraphRows) Snapshot(v GraphVersion) *snapshot.Snapshot {
	projects := make([]snapshot.Project, 0, len(r.Projects))
	for _, p := range r.Projects {
		projects = append(projects, snapshot.Project{
			Name:           p.Name,
			Type:           snapshot.ProjectType(p.Type),
			RootPath:       p.RootPath,
			SourceRootPath: p.SourceRootPath,
			ConfigFilePath: p.ConfigFilePath,
			Dependencies:   []string(p.Dependencies),
		})
	}
	components := make([]snapshot.Component, 0, len(r.Components))
	for _, c := range r.Components {
		components = append(components, snapshot.Component{
			Name:         c.Name,
			ClassName:    c.ClassName,
			Selector:     c.Selector,
			Standalone:   c.Standalone,
			Project:      c.Project,
			FilePath:     c.FilePath,
			Dependencies: []string(c.Dependencies),
		})
	}
	edges := make([]snapshot.Edge, 0, len(r.Dependencies))
	for _, d := range r.Dependencies {
		edges = append(edges, snapshot.Edge{
			SourceProject: d.SourceProject,
			TargetProject: d.TargetProject,
			ViaFiles:      []string(d.ViaFiles),
		})
	}
	s := snapshot.Assemble(v.WorkspaceConfigPath, projects, components, edges)
	s.SchemaVersion = v.SchemaVersion
	return s
}
