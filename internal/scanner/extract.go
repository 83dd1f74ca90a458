package scanner

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/wsgraph/engine/internal/snapshot"
)

// Structural patterns, not a parser. Specifiers inside comments are picked
// up like any other text.
var (
	staticImportRe  = regexp.MustCompile(`\bimport\s+(?:type\s+)?[^'";]*?\bfrom\s*['"]([^'"\n]+)['"]`)
	sideEffectRe    = regexp.MustCompile(`\bimport\s*['"]([^'"\n]+)['"]`)
	reExportRe      = regexp.MustCompile(`\bexport\s+(?:type\s+)?[^'";]*?\bfrom\s*['"]([^'"\n]+)['"]`)
	dynamicImportRe = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	componentRe     = regexp.MustCompile(`@Component\s*\(`)
	classNameRe     = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`)
	selectorRe      = regexp.MustCompile(`\bselector\s*:\s*['"]([^'"]+)['"]`)
	standaloneRe    = regexp.MustCompile(`\bstandalone\s*:\s*(true|false)\b`)
	importPatterns  = []*regexp.Regexp{staticImportRe, sideEffectRe, reExportRe, dynamicImportRe}
)

// extractImports returns the sorted, unique import specifiers found in src.
func extractImports(src string) []string {
	var specs []string
	for _, re := range importPatterns {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			if spec := strings.TrimSpace(m[1]); spec != "" {
				specs = append(specs, spec)
			}
		}
	}
	return snapshot.SortedUnique(specs)
}

type componentInfo struct {
	Name       string
	ClassName  string
	Selector   string
	Standalone *bool
}

// extractComponent detects a component declaration block in src.
func extractComponent(filePath, src string) (componentInfo, bool) {
	loc := componentRe.FindStringIndex(src)
	if loc == nil {
		return componentInfo{}, false
	}
	var c componentInfo
	if m := classNameRe.FindStringSubmatch(src[loc[1]:]); m != nil {
		c.ClassName = m[1]
	}
	if m := selectorRe.FindStringSubmatch(src); m != nil {
		c.Selector = m[1]
	}
	if m := standaloneRe.FindStringSubmatch(src); m != nil {
		v := m[1] == "true"
		c.Standalone = &v
	}
	c.Name = c.ClassName
	if c.Name == "" {
		c.Name = pascalCase(strings.TrimSuffix(path.Base(filePath), path.Ext(filePath)))
	}
	return c, true
}

// pascalCase turns "user-card.component" into "UserCardComponent".
func pascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
