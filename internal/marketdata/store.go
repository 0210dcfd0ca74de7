package marketdata

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Asset struct {
	Symbol  string          `json:"symbol"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	IconURL string          `json:"icon_url"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := s.pool.Query(ctx,
		"select symbol, name, price, coalesce(icon_url, '') from assets order by symbol")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Asset, 0, 8)
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Symbol, &a.Name, &a.Price, &a.IconURL); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAsset(ctx context.Context, symbol string) (Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var a Asset
	err := s.pool.QueryRow(ctx,
		"select symbol, name, price, coalesce(icon_url, '') from assets where symbol = $1", symbol).
		Scan(&a.Symbol, &a.Name, &a.Price, &a.IconURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, errors.New("asset not found")
		}
		return Asset{}, err
	}
	return a, nil
}

func (s *Store) UpdatePrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		"update assets set price = $2 where symbol = $1", strings.ToUpper(symbol), price)
	return err
}
