package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsgraph/engine/internal/snapshot"
)

func TestStableStringifySortsKeysAndDropsNulls(t *testing.T) {
	got, err := StableStringify(map[string]any{
		"b":    1,
		"a":    []any{map[string]any{"z": true, "y": nil}, "x<y"},
		"null": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[{"z":true},"x<y"],"b":1}`, got)
}

func TestStableStringifyIgnoresMapOrder(t *testing.T) {
	a, err := StableStringify(map[string]any{"one": 1, "two": map[string]any{"c": 3, "d": 4}})
	require.NoError(t, err)
	b, err := StableStringify(map[string]any{"two": map[string]any{"d": 4, "c": 3}, "one": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func sample() *snapshot.Snapshot {
	return snapshot.Assemble("workspace.json",
		[]snapshot.Project{
			{Name: "portal", Type: snapshot.TypeApplication, RootPath: "apps/portal"},
			{Name: "ui-kit", Type: snapshot.TypeLibrary, RootPath: "libs/ui-kit"},
		},
		nil,
		[]snapshot.Edge{{SourceProject: "portal", TargetProject: "ui-kit", ViaFiles: []string{"apps/portal/main.ts"}}},
	)
}

func TestComputeIsDeterministicAndSensitive(t *testing.T) {
	d1, err := Compute("ws-1", "wsgraph-scanner", "1.0.0", sample())
	require.NoError(t, err)
	d2, err := Compute("ws-1", "wsgraph-scanner", "1.0.0", sample())
	require.NoError(t, err)
	require.Equal(t, d1, d2)
	require.Len(t, d1, 16)

	other := map[string]func() (string, error){
		"workspace": func() (string, error) { return Compute("ws-2", "wsgraph-scanner", "1.0.0", sample()) },
		"scanner":   func() (string, error) { return Compute("ws-1", "other", "1.0.0", sample()) },
		"version":   func() (string, error) { return Compute("ws-1", "wsgraph-scanner", "", sample()) },
		"snapshot": func() (string, error) {
			s := sample()
			s.Dependencies[0].ViaFiles = append(s.Dependencies[0].ViaFiles, "apps/portal/other.ts")
			return Compute("ws-1", "wsgraph-scanner", "1.0.0", s)
		},
	}
	for name, fn := range other {
		d, err := fn()
		require.NoError(t, err)
		assert.NotEqual(t, d1, d, name)
	}
}

func TestComputeOmitsAbsentScannerVersion(t *testing.T) {
	s, err := StableStringify(Payload{WorkspaceID: "ws", ScannerName: "n", Snapshot: nil})
	require.NoError(t, err)
	assert.Equal(t, `{"scannerName":"n","workspaceId":"ws"}`, s)
}
