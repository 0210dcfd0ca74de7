package model

import (
	"time"

	"metatradex/internal/types"

	"github.com/shopspring/decimal"
)

type Profile struct {
	ID                  string              `json:"id"`
	Email               string              `json:"email"`
	FirstName           string              `json:"first_name"`
	LastName            string              `json:"last_name"`
	Country             string              `json:"country"`
	IsAdmin             bool                `json:"is_admin"`
	KYCStatus           types.KYCStatus     `json:"kyc_status"`
	IDDocumentURL       string              `json:"id_document_url,omitempty"`
	TradeOverrideStatus *types.TradeOutcome `json:"trade_override_status"`
	CreatedAt           time.Time           `json:"created_at"`
}

type UserAsset struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

type TradeSetting struct {
	ID         string          `json:"id"`
	Duration   int             `json:"duration"`
	WinRate    decimal.Decimal `json:"win_rate"`
	LossRate   decimal.Decimal `json:"loss_rate"`
	MinCapital decimal.Decimal `json:"min_capital"`
}

type Trade struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	Symbol      string               `json:"symbol"`
	StakeSymbol string               `json:"stake_symbol"`
	Direction   types.TradeDirection `json:"direction"`
	Amount      decimal.Decimal      `json:"amount"`
	Duration    int                  `json:"duration"`
	Status      types.TradeStatus    `json:"status"`
	Outcome     *types.TradeOutcome  `json:"outcome"`
	Delta       *decimal.Decimal     `json:"delta"`
	ExpiresAt   time.Time            `json:"expires_at"`
	SettledAt   *time.Time           `json:"settled_at"`
	CreatedAt   time.Time            `json:"created_at"`
}

type Transaction struct {
	ID         string                `json:"id"`
	UserID     string                `json:"user_id"`
	Type       types.TransactionType `json:"type"`
	Status     string                `json:"status"`
	FromSymbol string                `json:"from_symbol"`
	ToSymbol   string                `json:"to_symbol"`
	FromAmount decimal.Decimal       `json:"from_amount"`
	ToAmount   decimal.Decimal       `json:"to_amount"`
	Fee        decimal.Decimal       `json:"fee"`
	Price      decimal.Decimal       `json:"price"`
	Notes      string                `json:"notes"`
	CreatedAt  time.Time             `json:"created_at"`
}

type Deposit struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Currency   string              `json:"currency"`
	ProofURL   string              `json:"proof_url"`
	Status     types.RequestStatus `json:"status"`
	ReviewedBy string              `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time          `json:"reviewed_at"`
	CreatedAt  time.Time           `json:"created_at"`
}

type Withdrawal struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	WalletAddress string              `json:"wallet_address"`
	Status        types.RequestStatus `json:"status"`
	ReviewedBy    string              `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time          `json:"reviewed_at"`
	CreatedAt     time.Time           `json:"created_at"`
}
