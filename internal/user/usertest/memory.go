// Package usertest provides an in-memory user.Repository for tests.
package usertest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gracefellowship/church-admin-backend/internal/user"
)

type Repository struct {
	mu    sync.Mutex
	users map[string]*user.User
}

var _ user.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{users: make(map[string]*user.User)}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *Repository) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Repository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return user.ErrEmailAlreadyUsed
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.LastLoginAt = &t
	return nil
}

func (r *Repository) List(ctx context.Context, filter user.UserFilter) ([]*user.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*user.User
	for _, u := range r.users {
		if filter.Email != "" && !strings.Contains(u.Email, strings.ToLower(filter.Email)) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	total := len(out)
	if filter.PageSize > 0 {
		start := (max(filter.Page, 1) - 1) * filter.PageSize
		start = min(start, total)
		end := min(start+filter.PageSize, total)
		out = out[start:end]
	}
	return out, total, nil
}

func (r *Repository) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}
