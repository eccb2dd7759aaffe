package progress

import (
	"context"
	"sort"
	"sync"
)

// Repository persists whole progress snapshots.
type Repository interface {
	// Load returns ErrNotFound when the learner has no stored progress.
	Load(ctx context.Context, learnerID string) (*Progress, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, p Progress) error
	// List returns every stored snapshot ordered by learner name.
	List(ctx context.Context) ([]Progress, error)
}

// MemoryRepository is an in-memory Repository. Values are copied in and out
// so callers never share maps with the store.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Progress
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]Progress),
	}
}

func (r *MemoryRepository) Load(_ context.Context, learnerID string) (*Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[learnerID]
	if !ok {
		return nil, ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (r *MemoryRepository) Save(_ context.Context, p Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.LearnerID] = p.Clone()
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Progress, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p.Clone())
	}
	sortByName(out)
	return out, nil
}

func sortByName(ps []Progress) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].LearnerName != ps[j].LearnerName {
			return ps[i].LearnerName < ps[j].LearnerName
		}
		return ps[i].LearnerID < ps[j].LearnerID
	})
}
