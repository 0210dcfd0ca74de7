package trading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"metatradex/internal/assets"
	"metatradex/internal/history"
	"metatradex/internal/model"
	"metatradex/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const defaultStakeSymbol = "USDT"

var (
	ErrBelowMinCapital  = errors.New("amount below minimum capital for this duration")
	ErrUnknownDuration  = errors.New("no trade setting for this duration")
	ErrInvalidDirection = errors.New("direction must be buy or sell")
	ErrKYCRequired      = errors.New("KYC approval required before trading")
)

type Service struct {
	pool     *pgxpool.Pool
	assets   *assets.Service
	history  *history.Store
	interval time.Duration

	// draw produces the uniform [0,1) sample used to settle a trade
	// when no override is set. Swapped out in tests.
	draw func() float64
}

func NewService(pool *pgxpool.Pool, assetSvc *assets.Service, historyStore *history.Store, interval time.Duration) *Service {
	return &Service{
		pool:     pool,
		assets:   assetSvc,
		history:  historyStore,
		interval: interval,
		draw:     rand.Float64,
	}
}

func (s *Service) Settings(ctx context.Context) ([]model.TradeSetting, error) {
	rows, err := s.pool.Query(ctx,
		"select id::text, duration, win_rate, loss_rate, min_capital from trade_settings order by duration")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TradeSetting, 0, 4)
	for rows.Next() {
		var ts model.TradeSetting
		if err := rows.Scan(&ts.ID, &ts.Duration, &ts.WinRate, &ts.LossRate, &ts.MinCapital); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// rowQuerier is satisfied by both the pool and an open transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Service) settingForDuration(ctx context.Context, q rowQuerier, duration int) (*model.TradeSetting, error) {
	var ts model.TradeSetting
	err := q.QueryRow(ctx,
		"select id::text, duration, win_rate, loss_rate, min_capital from trade_settings where duration = $1",
		duration).Scan(&ts.ID, &ts.Duration, &ts.WinRate, &ts.LossRate, &ts.MinCapital)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ts, nil
}

// normalizeStakeSymbol uppercases the requested stake currency, falling
// back to USDT when none was given.
func normalizeStakeSymbol(stake string) string {
	stake = strings.ToUpper(strings.TrimSpace(stake))
	if stake == "" {
		return defaultStakeSymbol
	}
	return stake
}

// Place opens a timed trade. The stake is validated against the staked
// currency's balance but not debited; settlement applies the whole
// signed delta.
func (s *Service) Place(ctx context.Context, userID, symbol, stake string, direction types.TradeDirection, amount decimal.Decimal, duration int) (model.Trade, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Trade{}, errors.New("symbol is required")
	}
	stake = normalizeStakeSymbol(stake)
	if direction != types.TradeDirectionBuy && direction != types.TradeDirectionSell {
		return model.Trade{}, ErrInvalidDirection
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.Trade{}, errors.New("amount must be positive")
	}
	if duration <= 0 {
		return model.Trade{}, errors.New("duration must be positive")
	}
	var kycStatus string
	if err := s.pool.QueryRow(ctx,
		"select kyc_status from profiles where id = $1", userID).Scan(&kycStatus); err != nil {
		return model.Trade{}, err
	}
	if kycStatus != "approved" {
		return model.Trade{}, ErrKYCRequired
	}
	setting, err := s.settingForDuration(ctx, s.pool, duration)
	if err != nil {
		return model.Trade{}, err
	}
	if setting == nil {
		return model.Trade{}, ErrUnknownDuration
	}
	if amount.LessThan(setting.MinCapital) {
		return model.Trade{}, ErrBelowMinCapital
	}
	balance, err := s.assets.GetBalance(ctx, userID, stake)
	if err != nil {
		return model.Trade{}, err
	}
	if balance.LessThan(amount) {
		return model.Trade{}, assets.ErrInsufficientFunds
	}

	var t model.Trade
	err = s.pool.QueryRow(ctx, `
		INSERT INTO trades (user_id, symbol, stake_symbol, direction, amount, duration, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'open', NOW() + make_interval(secs => $6))
		RETURNING id::text, user_id::text, symbol, stake_symbol, direction, amount, duration, status, expires_at, created_at
	`, userID, symbol, stake, string(direction), amount, duration).Scan(
		&t.ID, &t.UserID, &t.Symbol, &t.StakeSymbol, &t.Direction, &t.Amount, &t.Duration,
		&t.Status, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return model.Trade{}, err
	}
	return t, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id::text, symbol, stake_symbol, direction, amount, duration,
		       status, outcome, delta, expires_at, settled_at, created_at
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Trade, 0, limit)
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.StakeSymbol, &t.Direction, &t.Amount,
			&t.Duration, &t.Status, &t.Outcome, &t.Delta, &t.ExpiresAt, &t.SettledAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// StartSettlementWorker drains expired open trades on a ticker. Each
// trade settles in its own serializable transaction so a crash between
// trades never leaves a half-applied settlement.
func (s *Service) StartSettlementWorker(ctx context.Context) {
	run := func() {
		for {
			settled, err := s.settleOneDueTrade(ctx)
			if err != nil {
				log.Printf("[settlement] settle failed: %v", err)
				return
			}
			if !settled {
				return
			}
		}
	}
	run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// settlementRecord builds the transactions row for a settled trade. Both
// symbol columns carry the staked currency; the chart symbol appears in
// the notes and its reference price in the price column.
func settlementRecord(t model.Trade, outcome types.TradeOutcome, delta, refPrice decimal.Decimal) model.Transaction {
	return model.Transaction{
		UserID:     t.UserID,
		Type:       types.TransactionTypeTrade,
		Status:     string(outcome),
		FromSymbol: t.StakeSymbol,
		ToSymbol:   t.StakeSymbol,
		FromAmount: t.Amount,
		ToAmount:   delta,
		Fee:        decimal.Zero,
		Price:      refPrice,
		Notes:      fmt.Sprintf("%ds trade on %s - %s", t.Duration, t.Symbol, strings.ToUpper(string(outcome))),
	}
}

func (s *Service) settleOneDueTrade(ctx context.Context) (bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var t model.Trade
	err = tx.QueryRow(ctx, `
		SELECT id::text, user_id::text, symbol, stake_symbol, amount, duration
		FROM trades
		WHERE status = 'open'
		  AND expires_at <= NOW()
		ORDER BY expires_at ASC, created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&t.ID, &t.UserID, &t.Symbol, &t.StakeSymbol, &t.Amount, &t.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	var override *types.TradeOutcome
	if err := tx.QueryRow(ctx,
		"select trade_override_status from profiles where id = $1", t.UserID).Scan(&override); err != nil {
		return false, err
	}
	setting, err := s.settingForDuration(ctx, tx, t.Duration)
	if err != nil {
		return false, err
	}

	outcome := DecideOutcome(override, s.draw(), setting)
	delta := SettlementDelta(outcome, t.Amount, setting)

	tag, err := tx.Exec(ctx, `
		UPDATE trades
		SET status = 'settled', outcome = $2, delta = $3, settled_at = NOW()
		WHERE id = $1
		  AND status = 'open'
	`, t.ID, string(outcome), delta)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if err := s.assets.ApplyTradeDelta(ctx, tx, t.UserID, t.StakeSymbol, delta); err != nil {
		return false, err
	}
	var refPrice decimal.Decimal
	if err := tx.QueryRow(ctx,
		"select price from assets where symbol = $1", t.Symbol).Scan(&refPrice); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, err
		}
		refPrice = decimal.Zero
	}
	if err := s.history.Insert(ctx, tx, settlementRecord(t, outcome, delta, refPrice)); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	log.Printf("[settlement] trade %s settled: %s delta=%s", t.ID, outcome, delta.String())
	return true, nil
}
