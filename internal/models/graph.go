package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GraphVersion is one immutable, numbered commit of a workspace graph.
type GraphVersion struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID         string    `gorm:"type:varchar(255);not null;index:idx_graph_versions_workspace_version,unique" json:"workspaceId"`
	Version             int       `gorm:"not null;index:idx_graph_versions_workspace_version,unique" json:"version"`
	ScanRunID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"scanRunId"`
	PayloadHash         string    `gorm:"type:varchar(64);not null" json:"payloadHash"`
	SchemaVersion       int       `gorm:"not null" json:"schemaVersion"`
	WorkspaceConfigPath string    `gorm:"type:varchar(512)" json:"workspaceConfigPath"`
	ProjectCount        int       `gorm:"not null" json:"projectCount"`
	LibCount            int       `gorm:"not null" json:"libCount"`
	ComponentCount      int       `gorm:"not null" json:"componentCount"`
	DependencyCount     int       `gorm:"not null" json:"dependencyCount"`
	CreatedAt           time.Time `gorm:"not null" json:"createdAt"`
}

func (GraphVersion) TableName() string { return "graph_versions" }

func (v *GraphVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// GraphHead points at the latest committed version of a workspace.
type GraphHead struct {
	WorkspaceID    string    `gorm:"type:varchar(255);primaryKey" json:"workspaceId"`
	LatestVersion  int       `gorm:"not null" json:"latestVersion"`
	GraphVersionID uuid.UUID `gorm:"type:uuid;not null" json:"graphVersionId"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (GraphHead) TableName() string { return "graph_heads" }

// GraphProject is a project row scoped to a version.
type GraphProject struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	VersionID      uuid.UUID                   `gorm:"type:uuid;not null;index:idx_graph_projects_version_name,unique" json:"-"`
	Name           string                      `gorm:"type:varchar(255);not null;index:idx_graph_projects_version_name,unique" json:"name"`
	Type           string                      `gorm:"type:varchar(16);not null" json:"type"`
	RootPath       string                      `gorm:"type:varchar(1024)" json:"rootPath"`
	SourceRootPath string                      `gorm:"type:varchar(1024)" json:"sourceRootPath,omitempty"`
	ConfigFilePath string                      `gorm:"type:varchar(1024)" json:"configFilePath"`
	Dependencies   datatypes.JSONSlice[string] `json:"dependencies"`
}

func (GraphProject) TableName() string { return "graph_projects" }

func (p *GraphProject) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// GraphComponent is a component row scoped to a version.
type GraphComponent struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	VersionID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"-"`
	Project      string                      `gorm:"type:varchar(255);not null" json:"project"`
	FilePath     string                      `gorm:"type:varchar(1024);not null" json:"filePath"`
	Name         string                      `gorm:"type:varchar(255);not null" json:"name"`
	ClassName    string                      `gorm:"type:varchar(255)" json:"className,omitempty"`
	Selector     string                      `gorm:"type:varchar(255)" json:"selector,omitempty"`
	Standalone   *bool                       `json:"standalone,omitempty"`
	Dependencies datatypes.JSONSlice[string] `json:"dependencies"`
}

func (GraphComponent) TableName() string { return "graph_components" }

func (c *GraphComponent) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// GraphDependency is an edge row scoped to a version.
type GraphDependency struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	VersionID     uuid.UUID                   `gorm:"type:uuid;not null;index" json:"-"`
	SourceProject string                      `gorm:"type:varchar(255);not null" json:"sourceProject"`
	TargetProject string                      `gorm:"type:varchar(255);not null" json:"targetProject"`
	ViaFiles      datatypes.JSONSlice[string] `json:"viaFiles"`
}

func (GraphDependency) TableName() string { return "graph_dependencies" }

func (d *GraphDependency) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
