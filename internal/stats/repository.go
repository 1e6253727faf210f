// Package stats counts how many distinct users reached each step of the form.
// Only step names and Telegram user ids are stored, never inquiry content.
package stats

import (
	"context"
	"embed"
	"sync"
)

// Migrations holds the Postgres schema for PostgresRepo.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// Repository records step hits with set semantics per (step, user).
type Repository interface {
	Hit(ctx context.Context, step string, userID int64) error
	Counts(ctx context.Context) (map[string]int, error)
}

// MemoryRepo keeps hits in process memory. It is lost on restart.
type MemoryRepo struct {
	mu   sync.Mutex
	hits map[string]map[int64]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{hits: make(map[string]map[int64]struct{})}
}

func (r *MemoryRepo) Hit(_ context.Context, step string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, ok := r.hits[step]
	if !ok {
		users = make(map[int64]struct{})
		r.hits[step] = users
	}
	users[userID] = struct{}{}
	return nil
}

func (r *MemoryRepo) Counts(_ context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.hits))
	for step, users := range r.hits {
		out[step] = len(users)
	}
	return out, nil
}
