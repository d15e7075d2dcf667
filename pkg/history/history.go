// Package history keeps one conversation per tab on the host side.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/pagechat/pkg/types"
)

// ErrEmptyTabID is returned when a store call names no tab.
var ErrEmptyTabID = errors.New("history: empty tab id")

// Store persists conversation turns keyed by tab id.
type Store interface {
	// Load returns the tab's turns in chronological order. Unknown tabs
	// have an empty history.
	Load(ctx context.Context, tabID string) ([]types.Turn, error)

	// Append adds turns to the end of the tab's history.
	Append(ctx context.Context, tabID string, turns ...types.Turn) error

	// Reset drops the tab's history.
	Reset(ctx context.Context, tabID string) error

	// Close releases the store's resources.
	Close() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]types.Turn
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]types.Turn)}
}

// Load returns a copy of the tab's turns.
func (s *MemoryStore) Load(ctx context.Context, tabID string) ([]types.Turn, error) {
	if err := check(ctx, tabID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Turn(nil), s.turns[tabID]...), nil
}

// Append adds turns for tabID.
func (s *MemoryStore) Append(ctx context.Context, tabID string, turns ...types.Turn) error {
	if err := check(ctx, tabID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[tabID] = append(s.turns[tabID], turns...)
	return nil
}

// Reset drops tabID's turns.
func (s *MemoryStore) Reset(ctx context.Context, tabID string) error {
	if err := check(ctx, tabID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, tabID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func check(ctx context.Context, tabID string) error {
	if tabID == "" {
		return ErrEmptyTabID
	}
	return ctx.Err()
}
