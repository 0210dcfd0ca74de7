package history

import (
	"context"

	"metatradex/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the append-only transactions log. Rows are never updated or
// deleted.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, tx pgx.Tx, t model.Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, type, status, from_symbol, to_symbol, from_amount, to_amount, fee, price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.UserID, string(t.Type), t.Status, t.FromSymbol, t.ToSymbol, t.FromAmount, t.ToAmount, t.Fee, t.Price, t.Notes)
	return err
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, type, status, from_symbol, to_symbol, from_amount, to_amount, fee, price, notes, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0, limit)
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Status, &t.FromSymbol, &t.ToSymbol,
			&t.FromAmount, &t.ToAmount, &t.Fee, &t.Price, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
