package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"metatradex/internal/history"
	"metatradex/internal/marketdata"
	"metatradex/internal/model"
	"metatradex/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type Service struct {
	pool    *pgxpool.Pool
	market  *marketdata.Store
	history *history.Store
}

func NewService(pool *pgxpool.Pool, market *marketdata.Store, historyStore *history.Store) *Service {
	return &Service{pool: pool, market: market, history: historyStore}
}

func (s *Service) BalancesByUser(ctx context.Context, userID string) ([]model.UserAsset, error) {
	rows, err := s.pool.Query(ctx,
		"select id, user_id, symbol, amount from user_assets where user_id = $1 order by symbol", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.UserAsset, 0, 4)
	for rows.Next() {
		var a model.UserAsset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Symbol, &a.Amount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Service) GetBalance(ctx context.Context, userID, symbol string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := s.pool.QueryRow(ctx,
		"select amount from user_assets where user_id = $1 and symbol = $2", userID, symbol).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return amount, nil
}

// Credit adds amount to the (user, symbol) row, creating it when absent.
// The increment happens inside the database so two concurrent credits
// cannot lose an update.
func (s *Service) Credit(ctx context.Context, tx pgx.Tx, userID, symbol string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO user_assets (user_id, symbol, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, symbol)
		DO UPDATE SET amount = user_assets.amount + EXCLUDED.amount
	`, userID, strings.ToUpper(symbol), amount)
	return err
}

// Debit subtracts amount and fails with ErrInsufficientFunds when the row
// is missing or holds less than amount. Conditional so it is safe under
// concurrent settlements and withdrawals.
func (s *Service) Debit(ctx context.Context, tx pgx.Tx, userID, symbol string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE user_assets
		SET amount = amount - $3
		WHERE user_id = $1
		  AND symbol = $2
		  AND amount >= $3
	`, userID, strings.ToUpper(symbol), amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyTradeDelta applies a settlement delta with the floor-at-zero rule:
// a loss can never drive the balance negative, and a loss against a user
// with no balance row is dropped without creating one.
func (s *Service) ApplyTradeDelta(ctx context.Context, tx pgx.Tx, userID, symbol string, delta decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE user_assets
		SET amount = GREATEST(0, amount + $3)
		WHERE user_id = $1
		  AND symbol = $2
	`, userID, strings.ToUpper(symbol), delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 && delta.GreaterThan(decimal.Zero) {
		_, err = tx.Exec(ctx,
			"insert into user_assets (user_id, symbol, amount) values ($1, $2, $3)",
			userID, strings.ToUpper(symbol), delta)
		return err
	}
	return nil
}

type SwapResult struct {
	FromSymbol string          `json:"from_symbol"`
	ToSymbol   string          `json:"to_symbol"`
	FromAmount decimal.Decimal `json:"from_amount"`
	ToAmount   decimal.Decimal `json:"to_amount"`
	Rate       decimal.Decimal `json:"rate"`
}

// Swap converts between two assets at the stored reference prices. Debit,
// credit, and the audit row commit together or not at all.
func (s *Service) Swap(ctx context.Context, userID, fromSymbol, toSymbol string, amount decimal.Decimal) (SwapResult, error) {
	fromSymbol = strings.ToUpper(strings.TrimSpace(fromSymbol))
	toSymbol = strings.ToUpper(strings.TrimSpace(toSymbol))
	if fromSymbol == "" || toSymbol == "" || fromSymbol == toSymbol {
		return SwapResult{}, errors.New("invalid swap pair")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return SwapResult{}, errors.New("amount must be positive")
	}
	from, err := s.market.GetAsset(ctx, fromSymbol)
	if err != nil {
		return SwapResult{}, errors.New("asset not found: " + fromSymbol)
	}
	to, err := s.market.GetAsset(ctx, toSymbol)
	if err != nil {
		return SwapResult{}, errors.New("asset not found: " + toSymbol)
	}
	if !from.Price.GreaterThan(decimal.Zero) || !to.Price.GreaterThan(decimal.Zero) {
		return SwapResult{}, errors.New("asset price unavailable")
	}
	rate := from.Price.Div(to.Price)
	toAmount := amount.Mul(rate)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return SwapResult{}, err
	}
	defer tx.Rollback(ctx)
	if err := s.Debit(ctx, tx, userID, fromSymbol, amount); err != nil {
		return SwapResult{}, err
	}
	if err := s.Credit(ctx, tx, userID, toSymbol, toAmount); err != nil {
		return SwapResult{}, err
	}
	err = s.history.Insert(ctx, tx, model.Transaction{
		UserID:     userID,
		Type:       types.TransactionTypeSwap,
		Status:     "completed",
		FromSymbol: fromSymbol,
		ToSymbol:   toSymbol,
		FromAmount: amount,
		ToAmount:   toAmount,
		Fee:        decimal.Zero,
		Price:      rate,
		Notes:      fmt.Sprintf("swap %s %s to %s", amount.String(), fromSymbol, toSymbol),
	})
	if err != nil {
		return SwapResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return SwapResult{}, err
	}
	return SwapResult{
		FromSymbol: fromSymbol,
		ToSymbol:   toSymbol,
		FromAmount: amount,
		ToAmount:   toAmount,
		Rate:       rate,
	}, nil
}
