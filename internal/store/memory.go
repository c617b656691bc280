package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	solves map[string][]SolveRecord   // tenant -> records, oldest first
	optCfg map[string]map[string]any // tenant -> config
}

func NewMemory() *Memory {
	return &Memory{
		solves: map[string][]SolveRecord{},
		optCfg: map[string]map[string]any{},
	}
}

func (m *Memory) SaveSolveRecord(ctx context.Context, rec SolveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Snapshots = append([]WeightSnapshot(nil), rec.Snapshots...)
	list := m.solves[rec.TenantID]
	for i := range list {
		if list[i].ID == rec.ID {
			list[i] = rec
			return nil
		}
	}
	m.solves[rec.TenantID] = append(list, rec)
	return nil
}

func (m *Memory) GetSolveRecord(ctx context.Context, tenantID, id string) (SolveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.solves[tenantID] {
		if r.ID == id {
			return r, nil
		}
	}
	return SolveRecord{}, ErrNotFound
}

func (m *Memory) ListSolveRecords(ctx context.Context, tenantID, cursor string, limit int) ([]SolveRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.solves[tenantID]
	list := make([]SolveRecord, len(src))
	for i, r := range src {
		list[len(src)-1-i] = r
	}
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	limit = clampLimit(limit)
	end := min(start+limit, len(list))
	items := list[start:end]
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.optCfg[tenantID]
	if !ok {
		return nil, nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]any, len(cfg))
	for k, v := range cfg {
		cp[k] = v
	}
	m.optCfg[tenantID] = cp
	return nil
}
