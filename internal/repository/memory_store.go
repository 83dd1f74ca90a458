package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wsgraph/engine/internal/models"
	appErr "github.com/wsgraph/engine/pkg/errors"
)

// MemoryStore is an in-process Store. Transactions are serialized and work on
// a copy of the state that replaces the original only on success.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	runs     map[uuid.UUID]models.ScanRun
	runKeys  map[string]uuid.UUID
	versions map[uuid.UUID]models.GraphVersion
	numbers  map[string]map[int]uuid.UUID
	heads    map[string]models.GraphHead
	rows     map[uuid.UUID]models.GraphRows
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		runs:     map[uuid.UUID]models.ScanRun{},
		runKeys:  map[string]uuid.UUID{},
		versions: map[uuid.UUID]models.GraphVersion{},
		numbers:  map[string]map[int]uuid.UUID{},
		heads:    map[string]models.GraphHead{},
		rows:     map[uuid.UUID]models.GraphRows{},
	}}
}

func (st memState) clone() memState {
	c := memState{
		runs:     make(map[uuid.UUID]models.ScanRun, len(st.runs)),
		runKeys:  make(map[string]uuid.UUID, len(st.runKeys)),
		versions: make(map[uuid.UUID]models.GraphVersion, len(st.versions)),
		numbers:  make(map[string]map[int]uuid.UUID, len(st.numbers)),
		heads:    make(map[string]models.GraphHead, len(st.heads)),
		rows:     st.rows, // rows are write-once, shared
	}
	for k, v := range st.runs {
		c.runs[k] = v
	}
	for k, v := range st.runKeys {
		c.runKeys[k] = v
	}
	for k, v := range st.versions {
		c.versions[k] = v
	}
	for ws, m := range st.numbers {
		cm := make(map[int]uuid.UUID, len(m))
		for n, id := range m {
			cm[n] = id
		}
		c.numbers[ws] = cm
	}
	for k, v := range st.heads {
		c.heads[k] = v
	}
	return c
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	tx := &memTx{state: &work, pendingRows: map[uuid.UUID]models.GraphRows{}}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.pendingRows) > 0 {
		rows := make(map[uuid.UUID]models.GraphRows, len(work.rows)+len(tx.pendingRows))
		for k, v := range work.rows {
			rows[k] = v
		}
		for k, v := range tx.pendingRows {
			rows[k] = v
		}
		work.rows = rows
	}
	s.state = work
	return nil
}

func (s *MemoryStore) LatestSucceededRun(_ context.Context, workspaceID string) (*models.ScanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.ScanRun
	for _, r := range s.state.runs {
		if r.WorkspaceID != workspaceID || r.Status != models.RunSucceeded {
			continue
		}
		if best == nil || r.StartedAt.After(best.StartedAt) ||
			(r.StartedAt.Equal(best.StartedAt) && r.CreatedAt.After(best.CreatedAt)) {
			best = &r
		}
	}
	return best, nil
}

func (s *MemoryStore) GetRun(_ context.Context, idempotencyKey string) (*models.ScanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.state.runKeys[idempotencyKey]
	if !ok {
		return nil, nil
	}
	r := s.state.runs[id]
	return &r, nil
}

func (s *MemoryStore) GetHead(_ context.Context, workspaceID string) (*models.GraphHead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.state.heads[workspaceID]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *MemoryStore) GetVersion(_ context.Context, workspaceID string, version int) (*models.GraphVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.state.numbers[workspaceID][version]
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "graph version not found").
			WithMeta("workspaceId", workspaceID).
			WithMeta("version", version)
	}
	v := s.state.versions[id]
	return &v, nil
}

func (s *MemoryStore) GetVersionRows(_ context.Context, versionID uuid.UUID) (*models.GraphRows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.state.rows[versionID]
	if !ok {
		return &models.GraphRows{}, nil
	}
	return &models.GraphRows{
		Projects:     append([]models.GraphProject(nil), rows.Projects...),
		Components:   append([]models.GraphComponent(nil), rows.Components...),
		Dependencies: append([]models.GraphDependency(nil), rows.Dependencies...),
	}, nil
}

func (s *MemoryStore) ListVersions(_ context.Context, workspaceID string) ([]models.GraphVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GraphVersion, 0, len(s.state.numbers[workspaceID]))
	for _, id := range s.state.numbers[workspaceID] {
		out = append(out, s.state.versions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

type memTx struct {
	state       *memState
	pendingRows map[uuid.UUID]models.GraphRows
}

func (t *memTx) GetRunByKey(key string, _ bool) (*models.ScanRun, error) {
	id, ok := t.state.runKeys[key]
	if !ok {
		return nil, nil
	}
	r := t.state.runs[id]
	return &r, nil
}

func (t *memTx) GetRunByID(id uuid.UUID, _ bool) (*models.ScanRun, error) {
	r, ok := t.state.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *memTx) InsertRun(run *models.ScanRun) (bool, error) {
	if _, exists := t.state.runKeys[run.IdempotencyKey]; exists {
		return false, nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now
	t.state.runs[run.ID] = *run
	t.state.runKeys[run.IdempotencyKey] = run.ID
	return true, nil
}

func (t *memTx) UpdateRun(run *models.ScanRun) error {
	prev, ok := t.state.runs[run.ID]
	if !ok {
		return appErr.New(appErr.CodeRunNotFound, "scan run not found").WithMeta("scanRunId", run.ID.String())
	}
	if prev.IdempotencyKey != run.IdempotencyKey {
		return appErr.New(appErr.CodeDataIntegrity, "idempotency key is immutable")
	}
	run.UpdatedAt = time.Now().UTC()
	t.state.runs[run.ID] = *run
	return nil
}

func (t *memTx) GetHead(workspaceID string, _ bool) (*models.GraphHead, error) {
	h, ok := t.state.heads[workspaceID]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (t *memTx) EnsureHead(workspaceID string) error {
	if _, ok := t.state.heads[workspaceID]; !ok {
		t.state.heads[workspaceID] = models.GraphHead{WorkspaceID: workspaceID, UpdatedAt: time.Now().UTC()}
	}
	return nil
}

func (t *memTx) UpsertHead(head *models.GraphHead) error {
	head.UpdatedAt = time.Now().UTC()
	t.state.heads[head.WorkspaceID] = *head
	return nil
}

func (t *memTx) InsertVersion(version *models.GraphVersion, rows models.GraphRows) error {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	if _, taken := t.state.numbers[version.WorkspaceID][version.Version]; taken {
		return appErr.New(appErr.CodeVersionConflict, fmt.Sprintf("version %d already exists", version.Version)).
			WithMeta("workspaceId", version.WorkspaceID)
	}
	for _, v := range t.state.versions {
		if v.ScanRunID == version.ScanRunID {
			return appErr.New(appErr.CodeVersionConflict, "scan run already has a version").
				WithMeta("scanRunId", version.ScanRunID.String())
		}
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	t.state.versions[version.ID] = *version
	if t.state.numbers[version.WorkspaceID] == nil {
		t.state.numbers[version.WorkspaceID] = map[int]uuid.UUID{}
	}
	t.state.numbers[version.WorkspaceID][version.Version] = version.ID
	t.pendingRows[version.ID] = rows
	return nil
}
