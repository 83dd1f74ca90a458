package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractImports(t *testing.T) {
	src := `import { a } from 'pkg-a';
import type { T } from "pkg-types";
import * as ns from './ns';
import Default, { named as alias } from '@scope/lib';
import {
  multi,
  line,
} from '@scope/multi';
import './side-effect';
export { x } from './re-export';
export * from "@scope/all";
const lazy = () => import('./lazy');
const again = import ( "pkg-a" );
`
	require.Equal(t, []string{
		"./lazy",
		"./ns",
		"./re-export",
		"./side-effect",
		"@scope/all",
		"@scope/lib",
		"@scope/multi",
		"pkg-a",
		"pkg-types",
	}, extractImports(src))
}

func TestExtractImportsNoneFound(t *testing.T) {
	assert.Empty(t, extractImports("const x = require('cjs');\nexport const y = 1;\n"))
}

func TestExtractComponent(t *testing.T) {
	c, ok := extractComponent("libs/ui/src/card.component.ts", `
@Component({
  selector: "ui-card",
  standalone: false,
})
export class CardComponent implements OnInit {}
`)
	require.True(t, ok)
	assert.Equal(t, "CardComponent", c.Name)
	assert.Equal(t, "CardComponent", c.ClassName)
	assert.Equal(t, "ui-card", c.Selector)
	require.NotNil(t, c.Standalone)
	assert.False(t, *c.Standalone)
}

func TestExtractComponentFallbackName(t *testing.T) {
	c, ok := extractComponent("apps/web/user-card.component.ts", `@Component({ template: '' })`)
	require.True(t, ok)
	assert.Equal(t, "UserCardComponent", c.Name)
	assert.Empty(t, c.ClassName)
	assert.Empty(t, c.Selector)
	assert.Nil(t, c.Standalone)

	_, ok = extractComponent("apps/web/plain.ts", `export class Plain {}`)
	assert.False(t, ok)
}

func TestIsSourceFile(t *testing.T) {
	for name, want := range map[string]bool{
		"main.ts":        true,
		"view.tsx":       true,
		"legacy.js":      true,
		"entry.mjs":      true,
		"config.cjs":     true,
		"widget.jsx":     true,
		"types.d.ts":     false,
		"a.spec.ts":      false,
		"a.test.tsx":     false,
		"a.stories.ts":   false,
		"a.spec.js":      false,
		"styles.css":     false,
		"README.md":      false,
		"spec.ts":        true,
		"component.html": false,
	} {
		assert.Equal(t, want, isSourceFile(name), name)
	}
}

func TestNormalizePath(t *testing.T) {
	for in, want := range map[string]string{
		"./libs/a/":    "libs/a",
		"libs\\a\\src": "libs/a/src",
		".":            "",
		"":             "",
		"a/../b":       "b",
	} {
		got, ok := normalizePath(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"../x", "..", "/abs", "C:\\x", "a/../../b"} {
		_, ok := normalizePath(in)
		assert.False(t, ok, in)
	}
}

func TestSortRulesCollapsesDuplicates(t *testing.T) {
	rules := sortRules([]AliasRule{
		{Base: "@x", Project: "a"},
		{Base: "@x/sub", Project: "b"},
		{Base: "@x", Project: "a"},
		{Base: "@y", Project: "c"},
	})
	require.Equal(t, []AliasRule{
		{Base: "@x/sub", Project: "b"},
		{Base: "@x", Project: "a"},
		{Base: "@y", Project: "c"},
	}, rules)
}
