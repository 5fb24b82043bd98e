// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package auth_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/profilehub/profilehub/internal/auth"
)

// memStore is a minimal in-memory auth.UserStore for behavioural tests.
type memStore struct {
	mu    sync.Mutex
	users map[ulid.ULID]auth.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[ulid.ULID]auth.User)}
}

func (m *memStore) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, user.Username) {
			return auth.ErrUsernameTaken
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) FindByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memStore) Save(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[user.ID]
	if !ok {
		return auth.ErrNotFound
	}
	u.DisplayName = user.DisplayName
	u.Bio = user.Bio
	u.UpdatedAt = user.UpdatedAt
	m.users[user.ID] = u
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *memStore) Delete(_ context.Context, id ulid.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) List(_ context.Context) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*auth.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

var _ auth.UserStore = (*memStore)(nil)
