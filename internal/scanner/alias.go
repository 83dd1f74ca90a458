package scanner

import (
	"encoding/json"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	appErr "github.com/wsgraph/engine/pkg/errors"
)

// TSConfigCandidates hold path mappings; later files win on key collision.
var TSConfigCandidates = []string{"tsconfig.base.json", "tsconfig.json"}

// AliasRule maps a bare import prefix to the project that owns its target.
type AliasRule struct {
	Base    string
	Project string
}

// Matches reports whether specifier is the base itself or lies beneath it.
func (r AliasRule) Matches(specifier string) bool {
	return specifier == r.Base || strings.HasPrefix(specifier, r.Base+"/")
}

type tsconfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// loadAliasRules unions the path mappings of every candidate and resolves
// each target to its owning project.
func (s *Scanner) loadAliasRules(root string, owners *ownerIndex) ([]AliasRule, error) {
	targets := map[string]string{}
	for _, name := range TSConfigCandidates {
		abs := filepath.Join(root, name)
		info, err := s.fs.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := s.fs.ReadFile(abs)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeScanIO, "failed to read path mapping config").
				WithMeta("path", name)
		}
		cfg, err := parseTSConfig(data)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeTSConfigParse, "path mapping config is invalid").
				WithMeta("path", name).
				WithMeta("cause", err.Error())
		}

		baseURL := cfg.CompilerOptions.BaseURL
		if baseURL == "" {
			baseURL = "."
		}
		for key, values := range cfg.CompilerOptions.Paths {
			if len(values) == 0 {
				continue
			}
			target := strings.TrimSuffix(values[0], "/*")
			targets[key] = path.Join(path.Dir(name), baseURL, strings.ReplaceAll(target, "\\", "/"))
		}
	}

	rules := make([]AliasRule, 0, len(targets))
	for key, target := range targets {
		base := strings.TrimSuffix(key, "/*")
		if base == "" || base == "*" {
			continue
		}
		rel, ok := normalizePath(target)
		if !ok {
			s.log.Debug("alias target outside workspace", zap.String("alias", key), zap.String("target", target))
			continue
		}
		owner, ok := owners.ownerOf(rel)
		if !ok {
			s.log.Debug("alias target has no owning project", zap.String("alias", key), zap.String("target", rel))
			continue
		}
		rules = append(rules, AliasRule{Base: base, Project: owner})
	}
	return sortRules(rules), nil
}

func parseTSConfig(data []byte) (*tsconfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}
	var cfg tsconfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// sortRules orders by descending base length, then base, then project, and
// drops exact duplicates.
func sortRules(rules []AliasRule) []AliasRule {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if len(a.Base) != len(b.Base) {
			return len(a.Base) > len(b.Base)
		}
		if a.Base != b.Base {
			return a.Base < b.Base
		}
		return a.Project < b.Project
	})
	out := make([]AliasRule, 0, len(rules))
	for _, r := range rules {
		if n := len(out); n > 0 && out[n-1] == r {
			continue
		}
		out = append(out, r)
	}
	return out
}
