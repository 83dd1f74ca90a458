// Package scanner builds a deterministic dependency snapshot of a
// multi-project workspace from its registry, path mappings and source text.
package scanner

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"

	gitignore "github.com/denormal/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wsgraph/engine/internal/filesystem"
	"github.com/wsgraph/engine/internal/snapshot"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// Name identifies this scanner in ingestion requests.
const Name = "wsgraph-scanner"

// Version is stamped at build time.
var Version = "dev"

// Scanner walks a workspace and assembles its snapshot.
type Scanner struct {
	fs               filesystem.FileSystem
	log              *zap.Logger
	respectGitIgnore bool
	concurrency      int
}

// Option configures scanner behavior.
type Option func(*Scanner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// WithGitIgnore skips paths matched by the root .gitignore.
func WithGitIgnore(enabled bool) Option {
	return func(s *Scanner) {
		s.respectGitIgnore = enabled
	}
}

// WithConcurrency bounds how many projects are extracted at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a Scanner over fs.
func New(fs filesystem.FileSystem, options ...Option) *Scanner {
	s := &Scanner{
		fs:          fs,
		log:         zap.NewNop(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

type projectResult struct {
	components []snapshot.Component
	// fileTargets maps each source file to the projects it imports.
	fileTargets map[string][]string
}

// Scan resolves the workspace at root and returns its canonical snapshot.
func (s *Scanner) Scan(ctx context.Context, root string) (*snapshot.Snapshot, error) {
	abs, err := s.fs.Abs(root)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeScanIO, "failed to resolve workspace root").WithMeta("root", root)
	}

	reg, err := s.loadRegistry(abs)
	if err != nil {
		return nil, err
	}
	projects, err := s.resolveProjects(abs, reg)
	if err != nil {
		return nil, err
	}
	owners := newOwnerIndex(projects)

	rules, err := s.loadAliasRules(abs, owners)
	if err != nil {
		return nil, err
	}
	s.log.Debug("workspace resolved",
		zap.String("config", reg.ConfigPath),
		zap.Int("projects", len(projects)),
		zap.Int("aliases", len(rules)))

	ignore, err := s.loadGitIgnore(abs)
	if err != nil {
		return nil, err
	}

	res := &resolver{owners: owners, rules: rules}
	results := make([]projectResult, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range projects {
		g.Go(func() error {
			r, err := s.scanProject(gctx, abs, projects[i], res, ignore)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := merge(reg.ConfigPath, projects, results)
	s.log.Info("workspace scanned",
		zap.String("root", abs),
		zap.Int("projects", len(snap.Projects)),
		zap.Int("components", len(snap.Components)),
		zap.Int("dependencies", len(snap.Dependencies)))
	return snap, nil
}

func (s *Scanner) scanProject(ctx context.Context, root string, p snapshot.Project, res *resolver, ignore gitignore.GitIgnore) (projectResult, error) {
	scanRoot := p.RootPath
	if p.SourceRootPath != "" {
		scanRoot = p.SourceRootPath
	}
	files, err := s.listSourceFiles(ctx, root, scanRoot, ignore)
	if err != nil {
		return projectResult{}, err
	}

	out := projectResult{fileTargets: make(map[string][]string, len(files))}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return projectResult{}, err
		}
		// Files of a nested project belong to that project only.
		if owner, ok := res.owners.ownerOf(rel); ok && owner != p.Name && res.owners.nestedIn(owner, p) {
			continue
		}
		data, err := s.fs.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return projectResult{}, appErr.Wrap(err, appErr.CodeScanIO, "failed to read source file").
				WithMeta("path", rel).
				WithMeta("project", p.Name)
		}
		src := string(data)

		targets := snapshot.SortedUnique(res.targetsOf(p.Name, rel, extractImports(src)))
		if len(targets) > 0 {
			out.fileTargets[rel] = targets
		}
		if c, ok := extractComponent(rel, src); ok {
			out.components = append(out.components, snapshot.Component{
				Name:         c.Name,
				ClassName:    c.ClassName,
				Selector:     c.Selector,
				Standalone:   c.Standalone,
				Project:      p.Name,
				FilePath:     rel,
				Dependencies: targets,
			})
		}
	}
	s.log.Debug("project scanned",
		zap.String("project", p.Name),
		zap.Int("files", len(files)),
		zap.Int("components", len(out.components)))
	return out, nil
}

func merge(configPath string, projects []snapshot.Project, results []projectResult) *snapshot.Snapshot {
	var components []snapshot.Component
	var edges []snapshot.Edge
	for i := range projects {
		r := results[i]
		components = append(components, r.components...)

		via := map[string][]string{}
		for file, targets := range r.fileTargets {
			for _, t := range targets {
				via[t] = append(via[t], file)
			}
		}
		deps := make([]string, 0, len(via))
		for target, files := range via {
			deps = append(deps, target)
			edges = append(edges, snapshot.Edge{
				SourceProject: projects[i].Name,
				TargetProject: target,
				ViaFiles:      files,
			})
		}
		projects[i].Dependencies = deps
	}
	return snapshot.Assemble(configPath, projects, components, edges)
}

func (s *Scanner) loadGitIgnore(root string) (gitignore.GitIgnore, error) {
	if !s.respectGitIgnore {
		return nil, nil
	}
	ignorePath := filepath.Join(root, ".gitignore")
	if !s.fs.Exists(ignorePath) {
		return nil, nil
	}
	data, err := s.fs.ReadFile(ignorePath)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeScanIO, "failed to read .gitignore").WithMeta("path", ".gitignore")
	}
	return gitignore.New(bytes.NewReader(data), root, nil), nil
}
