package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/wsgraph/engine/pkg/errors"
)

func TestAssembleOrdersEverything(t *testing.T) {
	s := Assemble("workspace.json",
		[]Project{
			{Name: "web", Type: TypeApplication, Dependencies: []string{"ui", "core", "ui", "web"}},
			{Name: "core", Type: TypeLibrary},
			{Name: "ui", Type: TypeLibrary, Dependencies: []string{"core"}},
		},
		[]Component{
			{Name: "B", Project: "web", FilePath: "apps/web/b.ts", Dependencies: []string{"ui"}},
			{Name: "A", Project: "web", FilePath: "apps/web/a.ts"},
			{Name: "Card", Project: "ui", FilePath: "libs/ui/card.ts", Dependencies: []string{"ui", "core"}},
		},
		[]Edge{
			{SourceProject: "web", TargetProject: "ui", ViaFiles: []string{"b", "a"}},
			{SourceProject: "ui", TargetProject: "core", ViaFiles: []string{"x"}},
			{SourceProject: "web", TargetProject: "ui", ViaFiles: []string{"a", "c"}},
			{SourceProject: "core", TargetProject: "core", ViaFiles: []string{"self"}},
		},
	)

	require.Equal(t, 1, s.SchemaVersion)
	require.Equal(t, []string{"core", "ui", "web"}, names(s.Projects))
	require.Equal(t, []string{"core", "ui"}, names(s.Libs))
	assert.Equal(t, []string{"core", "ui"}, s.Projects[2].Dependencies)
	assert.Equal(t, []string{}, s.Projects[0].Dependencies)

	require.Len(t, s.Components, 3)
	assert.Equal(t, "libs/ui/card.ts", s.Components[0].FilePath)
	assert.Equal(t, []string{"core"}, s.Components[0].Dependencies)
	assert.Equal(t, "apps/web/a.ts", s.Components[1].FilePath)

	require.Equal(t, []Edge{
		{SourceProject: "ui", TargetProject: "core", ViaFiles: []string{"x"}},
		{SourceProject: "web", TargetProject: "ui", ViaFiles: []string{"a", "b", "c"}},
	}, s.Dependencies)
	require.NoError(t, s.Validate())
}

func TestCanonicalJSONHasNoNullLists(t *testing.T) {
	s := Assemble("workspace.json", []Project{{Name: "solo", Type: TypeApplication}}, nil, nil)
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schemaVersion": 1,
		"workspaceConfigPath": "workspace.json",
		"projects": [{"name":"solo","type":"application","rootPath":"","configFilePath":"","dependencies":[]}],
		"libs": [],
		"components": [],
		"dependencies": []
	}`, string(b))
}

func TestValidateRejectsStructuralProblems(t *testing.T) {
	base := func() *Snapshot {
		return Assemble("workspace.json",
			[]Project{{Name: "a", Type: TypeApplication}, {Name: "b", Type: TypeLibrary}},
			nil,
			[]Edge{{SourceProject: "a", TargetProject: "b", ViaFiles: []string{"a.ts"}}})
	}

	cases := map[string]func(s *Snapshot){
		"schema version":  func(s *Snapshot) { s.SchemaVersion = 2 },
		"duplicate name":  func(s *Snapshot) { s.Projects = append(s.Projects, Project{Name: "a", Type: TypeApplication}) },
		"bad type":        func(s *Snapshot) { s.Projects[0].Type = "service" },
		"self edge":       func(s *Snapshot) { s.Dependencies[0].TargetProject = "a" },
		"unknown edge":    func(s *Snapshot) { s.Dependencies[0].TargetProject = "zzz" },
		"unknown comp":    func(s *Snapshot) { s.Components = []Component{{Name: "X", Project: "nope", FilePath: "x.ts"}} },
		"lib not library": func(s *Snapshot) { s.Libs = append(s.Libs, Project{Name: "a", Type: TypeApplication}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := base()
			require.NoError(t, s.Validate())
			mutate(s)
			err := s.Validate()
			require.Error(t, err)
			require.True(t, appErr.IsCode(err, appErr.CodeValidation))
		})
	}
}

func names(ps []Project) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}
