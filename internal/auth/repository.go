package auth

import (
	"context"
	"sort"
	"sync"
)

// AccountRepository persists accounts. Create returns ErrDuplicateEmail when
// the email is taken; lookups return ErrNotFound.
type AccountRepository interface {
	Create(ctx context.Context, a Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	ListByRole(ctx context.Context, role Role) ([]Account, error)
}

// MemoryAccountRepository is an in-memory AccountRepository.
type MemoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
}

// NewMemoryAccountRepository creates an empty repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryAccountRepository) Create(_ context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[a.Email]; taken {
		return ErrDuplicateEmail
	}
	r.byID[a.ID] = a
	r.byEmail[a.Email] = a.ID
	return nil
}

func (r *MemoryAccountRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	a := r.byID[id]
	return &a, nil
}

func (r *MemoryAccountRepository) GetByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAccountRepository) ListByRole(_ context.Context, role Role) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Account{}
	for _, a := range r.byID {
		if a.Role == role {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len returns the number of stored accounts.
func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
