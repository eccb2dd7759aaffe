package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetChecker checks and records token usage against per-learner budgets.
type BudgetChecker interface {
	// Check returns true if the learner has budget remaining.
	Check(ctx context.Context, learnerID string) (bool, error)
	// Record records token usage for a learner.
	Record(ctx context.Context, learnerID string, tokens int) error
	// Usage returns current usage and limit for a learner. A zero limit means unlimited.
	Usage(ctx context.Context, learnerID string) (used int64, limit int64, err error)
}

// InMemoryBudget is an in-process budget tracker for development and tests.
type InMemoryBudget struct {
	mu           sync.RWMutex
	defaultLimit int64
	budgets      map[string]int64 // learner -> budget limit
	usage        map[string]int64 // learner -> tokens used
}

// NewInMemoryBudget creates a tracker where every learner gets defaultLimit
// tokens. Zero means unlimited.
func NewInMemoryBudget(defaultLimit int64) *InMemoryBudget {
	return &InMemoryBudget{
		defaultLimit: defaultLimit,
		budgets:      make(map[string]int64),
		usage:        make(map[string]int64),
	}
}

// SetBudget overrides the token budget for one learner.
func (b *InMemoryBudget) SetBudget(learnerID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[learnerID] = tokens
}

func (b *InMemoryBudget) limitFor(learnerID string) int64 {
	if limit, ok := b.budgets[learnerID]; ok {
		return limit
	}
	return b.defaultLimit
}

func (b *InMemoryBudget) Check(_ context.Context, learnerID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limitFor(learnerID)
	if limit == 0 {
		return true, nil
	}
	return b.usage[learnerID] < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[learnerID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, learnerID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[learnerID], b.limitFor(learnerID), nil
}

// RedisBudget keeps usage counters in Redis so every server instance shares
// them. Counters expire after window; zero window keeps them forever.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisBudget creates a Redis-backed tracker with the same limit for every learner.
func NewRedisBudget(client *redis.Client, limit int64, window time.Duration) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, window: window}
}

func (b *RedisBudget) Check(ctx context.Context, learnerID string) (bool, error) {
	if b.limit == 0 {
		return true, nil
	}
	used, _, err := b.Usage(ctx, learnerID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	key := budgetKey(learnerID)
	total, err := b.client.IncrBy(ctx, key, int64(tokens)).Result()
	if err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}
	// First write in the window starts the expiry clock.
	if b.window > 0 && total == int64(tokens) {
		if err := b.client.Expire(ctx, key, b.window).Err(); err != nil {
			return fmt.Errorf("set budget window: %w", err)
		}
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, learnerID string) (int64, int64, error) {
	used, err := b.client.Get(ctx, budgetKey(learnerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, b.limit, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read token usage: %w", err)
	}
	return used, b.limit, nil
}

func budgetKey(learnerID string) string {
	return "budget:" + learnerID
}
