package users

import (
	"context"
	"sync"

	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/ports"
)

// MemoryRepository is an in-memory implementation of the UserRepository interface
type MemoryRepository struct {
	byID map[int64]core.User
	mu   sync.RWMutex
}

// NewMemoryRepository creates a repository holding users
func NewMemoryRepository(users ...core.User) *MemoryRepository {
	r := &MemoryRepository{byID: make(map[int64]core.User)}
	for _, u := range users {
		r.Add(u)
	}
	return r
}

// DefaultUsers returns the account seeded for development deployments
func DefaultUsers() []core.User {
	return []core.User{
		{
			ID:          1,
			Username:    "18218162327",
			DisplayName: "测试用户",
			Avatar: &core.AvatarInfo{
				UserID:    1,
				AvatarURL: "https://picsum.photos/id/64/200/200",
			},
		},
	}
}

// NewDevelopmentRepository creates a repository seeded with DefaultUsers
func NewDevelopmentRepository() ports.UserRepository {
	return NewMemoryRepository(DefaultUsers()...)
}

// Add inserts or replaces a user
func (r *MemoryRepository) Add(u core.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[u.ID] = u
}

// FindByUsername returns the user registered under username
func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, core.ErrUserNotFound
}

// FindByID returns the user with id
func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &u, nil
}
