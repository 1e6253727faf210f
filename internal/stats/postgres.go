package stats

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresRepo stores hits in the funnel_hits table.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const (
	insertHitSQL = `INSERT INTO funnel_hits (step, user_id) VALUES ($1, $2) ON CONFLICT (step, user_id) DO NOTHING`
	countsSQL    = `SELECT step, COUNT(*) AS users FROM funnel_hits GROUP BY step`
)

func (r *PostgresRepo) Hit(ctx context.Context, step string, userID int64) error {
	if _, err := r.db.ExecContext(ctx, insertHitSQL, step, userID); err != nil {
		return fmt.Errorf("stats: insert hit: %w", err)
	}
	return nil
}

type stepCount struct {
	Step  string `db:"step"`
	Users int    `db:"users"`
}

func (r *PostgresRepo) Counts(ctx context.Context) (map[string]int, error) {
	var rows []stepCount
	if err := r.db.SelectContext(ctx, &rows, countsSQL); err != nil {
		return nil, fmt.Errorf("stats: select counts: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Step] = row.Users
	}
	return out, nil
}
