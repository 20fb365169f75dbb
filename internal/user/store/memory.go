// Package store provides user persistence adapters.
package store

import (
	"context"
	"fmt"
	"sync"

	"nearhelp/internal/user"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Memory is an in-process user store for tests and development runs.
type Memory struct {
	mu    sync.RWMutex
	users map[domain.UserID]user.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[domain.UserID]user.User)}
}

func (m *Memory) Save(_ context.Context, u user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) FindByID(_ context.Context, id domain.UserID) (user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("%w: user %s", sentinel.ErrNotFound, id)
	}
	return u, nil
}

// FindManyByIDs resolves the given ids, skipping unknown ones. Order follows
// the input ids.
func (m *Memory) FindManyByIDs(_ context.Context, ids []domain.UserID) ([]user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
