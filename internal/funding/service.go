package funding

import (
	"context"
	"errors"
	"strings"

	"metatradex/internal/assets"
	"metatradex/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrKYCRequired = errors.New("KYC approval required before withdrawing")

type Service struct {
	pool   *pgxpool.Pool
	assets *assets.Service
}

func NewService(pool *pgxpool.Pool, assetSvc *assets.Service) *Service {
	return &Service{pool: pool, assets: assetSvc}
}

// CreateDeposit records a pending deposit request. Nothing is credited
// until an admin approves it.
func (s *Service) CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal, currency, proofURL string) (model.Deposit, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USDT"
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.Deposit{}, errors.New("amount must be positive")
	}
	var d model.Deposit
	err := s.pool.QueryRow(ctx, `
		INSERT INTO deposits (user_id, amount, currency, proof_url, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id::text, user_id::text, amount, currency, coalesce(proof_url, ''), status, created_at
	`, userID, amount, currency, proofURL).Scan(
		&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.ProofURL, &d.Status, &d.CreatedAt)
	if err != nil {
		return model.Deposit{}, err
	}
	return d, nil
}

// CreateWithdrawal debits the balance up front and records the pending
// request in the same transaction. A rejection later refunds the debit.
func (s *Service) CreateWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, currency, walletAddress string) (model.Withdrawal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USDT"
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.Withdrawal{}, errors.New("amount must be positive")
	}
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return model.Withdrawal{}, errors.New("wallet address is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Withdrawal{}, err
	}
	defer tx.Rollback(ctx)

	var kycStatus string
	if err := tx.QueryRow(ctx,
		"select kyc_status from profiles where id = $1", userID).Scan(&kycStatus); err != nil {
		return model.Withdrawal{}, err
	}
	if kycStatus != "approved" {
		return model.Withdrawal{}, ErrKYCRequired
	}
	if err := s.assets.Debit(ctx, tx, userID, currency, amount); err != nil {
		return model.Withdrawal{}, err
	}
	var wd model.Withdrawal
	err = tx.QueryRow(ctx, `
		INSERT INTO withdrawals (user_id, amount, currency, wallet_address, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id::text, user_id::text, amount, currency, wallet_address, status, created_at
	`, userID, amount, currency, walletAddress).Scan(
		&wd.ID, &wd.UserID, &wd.Amount, &wd.Currency, &wd.WalletAddress, &wd.Status, &wd.CreatedAt)
	if err != nil {
		return model.Withdrawal{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Withdrawal{}, err
	}
	return wd, nil
}

func (s *Service) ListDepositsByUser(ctx context.Context, userID string) ([]model.Deposit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id::text, amount, currency, coalesce(proof_url, ''), status,
		       coalesce(reviewed_by::text, ''), reviewed_at, created_at
		FROM deposits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Deposit, 0, 8)
	for rows.Next() {
		var d model.Deposit
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.Currency, &d.ProofURL, &d.Status,
			&d.ReviewedBy, &d.ReviewedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Service) ListWithdrawalsByUser(ctx context.Context, userID string) ([]model.Withdrawal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id::text, amount, currency, wallet_address, status,
		       coalesce(reviewed_by::text, ''), reviewed_at, created_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Withdrawal, 0, 8)
	for rows.Next() {
		var wd model.Withdrawal
		if err := rows.Scan(&wd.ID, &wd.UserID, &wd.Amount, &wd.Currency, &wd.WalletAddress, &wd.Status,
			&wd.ReviewedBy, &wd.ReviewedAt, &wd.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	return out, rows.Err()
}
