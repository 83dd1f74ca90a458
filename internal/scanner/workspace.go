package scanner

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// WorkspaceCandidates are the registry files looked up at the workspace root, in order.
var WorkspaceCandidates = []string{"workspace.json", "angular.json"}

const (
	projectConfigFile = "project.json"
	libraryPrefix     = "libs"
)

type registry struct {
	// ConfigPath is workspace-relative.
	ConfigPath string
	Entries    map[string]json.RawMessage
}

// loadRegistry locates and parses the workspace config.
func (s *Scanner) loadRegistry(root string) (*registry, error) {
	var found string
	for _, name := range WorkspaceCandidates {
		info, err := s.fs.Stat(filepath.Join(root, name))
		if err == nil && !info.IsDir() {
			found = name
			break
		}
	}
	if found == "" {
		return nil, appErr.New(appErr.CodeWorkspaceNotFound, "no workspace configuration found").
			WithMeta("root", root).
			WithMeta("candidates", WorkspaceCandidates)
	}

	data, err := s.fs.ReadFile(filepath.Join(root, found))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeScanIO, "failed to read workspace configuration").
			WithMeta("path", found)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeWorkspaceParse, "workspace configuration is not valid JSON").
			WithMeta("path", found).
			WithMeta("cause", err.Error())
	}
	if _, isObject := parsed.(map[string]any); !isObject {
		return nil, appErr.New(appErr.CodeWorkspaceProjects, "workspace configuration must be a JSON object").
			WithMeta("path", found)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeWorkspaceParse, "workspace configuration is not valid JSON").
			WithMeta("path", found)
	}

	raw, ok := doc["projects"]
	if !ok || !isJSONObject(raw) {
		return nil, appErr.New(appErr.CodeWorkspaceProjects, "workspace configuration has no projects object").
			WithMeta("path", found)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeWorkspaceProjects, "workspace projects object is invalid").
			WithMeta("path", found)
	}
	return &registry{ConfigPath: found, Entries: entries}, nil
}

// resolveProjects expands every registry entry in lexical key order.
func (s *Scanner) resolveProjects(root string, reg *registry) ([]snapshot.Project, error) {
	names := make([]string, 0, len(reg.Entries))
	for name := range reg.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	projects := make([]snapshot.Project, 0, len(names))
	for _, name := range names {
		p, err := s.resolveProject(root, reg.ConfigPath, name, reg.Entries[name])
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

type projectFields struct {
	root        string
	hasRoot     bool
	sourceRoot  string
	projectType string
	configPath  string
}

func (s *Scanner) resolveProject(root, workspaceConfig, name string, raw json.RawMessage) (snapshot.Project, error) {
	trimmed := bytes.TrimSpace(raw)
	var (
		f   projectFields
		err error
	)
	switch {
	case isJSONObject(trimmed):
		f, err = inlineFields(name, workspaceConfig, trimmed)
	case len(trimmed) > 0 && trimmed[0] == '"':
		f, err = s.referencedFields(root, name, trimmed)
	default:
		err = appErr.New(appErr.CodeProjectConfigInvalid, "project entry must be an object or a path").
			WithMeta("project", name)
	}
	if err != nil {
		return snapshot.Project{}, err
	}

	if !f.hasRoot {
		if path.Base(f.configPath) != projectConfigFile {
			return snapshot.Project{}, appErr.New(appErr.CodeProjectConfigInvalid, "project has no root").
				WithMeta("project", name).
				WithMeta("path", f.configPath)
		}
		f.root = path.Dir(f.configPath)
	}

	rootPath, ok := normalizePath(f.root)
	if !ok {
		return snapshot.Project{}, invalidPath(name, f.root)
	}
	var sourceRoot string
	if f.sourceRoot != "" {
		if sourceRoot, ok = normalizePath(f.sourceRoot); !ok {
			return snapshot.Project{}, invalidPath(name, f.sourceRoot)
		}
	}

	var typ snapshot.ProjectType
	switch f.projectType {
	case "":
		typ = snapshot.TypeApplication
		if under(rootPath, libraryPrefix) {
			typ = snapshot.TypeLibrary
		}
	case string(snapshot.TypeApplication), string(snapshot.TypeLibrary):
		typ = snapshot.ProjectType(f.projectType)
	default:
		return snapshot.Project{}, appErr.Newf(appErr.CodeProjectConfigInvalid, "unknown projectType %q", f.projectType).
			WithMeta("project", name).
			WithMeta("path", f.configPath)
	}

	return snapshot.Project{
		Name:           name,
		Type:           typ,
		RootPath:       rootPath,
		SourceRootPath: sourceRoot,
		ConfigFilePath: f.configPath,
		Dependencies:   []string{},
	}, nil
}

func inlineFields(name, workspaceConfig string, raw json.RawMessage) (projectFields, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return projectFields{}, appErr.Wrap(err, appErr.CodeProjectConfigInvalid, "project entry is invalid").
			WithMeta("project", name)
	}
	f, err := fieldsFrom(name, workspaceConfig, obj)
	if err != nil {
		return projectFields{}, err
	}
	if !f.hasRoot {
		return projectFields{}, appErr.New(appErr.CodeProjectConfigInvalid, "project has no root").
			WithMeta("project", name).
			WithMeta("path", workspaceConfig)
	}
	return f, nil
}

func (s *Scanner) referencedFields(root, name string, raw json.RawMessage) (projectFields, error) {
	var ref string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return projectFields{}, appErr.Wrap(err, appErr.CodeProjectConfigInvalid, "project reference is invalid").
			WithMeta("project", name)
	}
	rel, ok := normalizePath(ref)
	if !ok {
		return projectFields{}, invalidPath(name, ref)
	}
	configPath := rel
	if !strings.HasSuffix(rel, ".json") {
		configPath = path.Join(rel, projectConfigFile)
	}

	data, err := s.fs.ReadFile(filepath.Join(root, filepath.FromSlash(configPath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return projectFields{}, appErr.New(appErr.CodeProjectConfigNotFound, "project configuration not found").
				WithMeta("project", name).
				WithMeta("path", configPath)
		}
		return projectFields{}, appErr.Wrap(err, appErr.CodeScanIO, "failed to read project configuration").
			WithMeta("project", name).
			WithMeta("path", configPath)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return projectFields{}, appErr.Wrap(err, appErr.CodeProjectConfigParse, "project configuration is not valid JSON").
			WithMeta("project", name).
			WithMeta("path", configPath).
			WithMeta("cause", err.Error())
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return projectFields{}, appErr.New(appErr.CodeProjectConfigInvalid, "project configuration must be an object").
			WithMeta("project", name).
			WithMeta("path", configPath)
	}
	return fieldsFrom(name, configPath, obj)
}

func fieldsFrom(name, configPath string, obj map[string]any) (projectFields, error) {
	f := projectFields{configPath: configPath}
	var err error
	if f.root, f.hasRoot, err = stringField(obj, "root"); err != nil {
		return f, fieldErr(name, configPath, "root")
	}
	if f.sourceRoot, _, err = stringField(obj, "sourceRoot"); err != nil {
		return f, fieldErr(name, configPath, "sourceRoot")
	}
	if f.projectType, _, err = stringField(obj, "projectType"); err != nil {
		return f, fieldErr(name, configPath, "projectType")
	}
	return f, nil
}

var errNotString = errors.New("not a string")

func stringField(obj map[string]any, key string) (string, bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, errNotString
	}
	return s, true, nil
}

func fieldErr(name, configPath, field string) error {
	return appErr.Newf(appErr.CodeProjectConfigInvalid, "project field %q must be a string", field).
		WithMeta("project", name).
		WithMeta("path", configPath)
}

func invalidPath(project, p string) error {
	return appErr.Newf(appErr.CodeInvalidPath, "path %q is outside the workspace", p).
		WithMeta("project", project).
		WithMeta("path", p)
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
