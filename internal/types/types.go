package types

type TradeStatus string

type TradeOutcome string

type TradeDirection string

type RequestStatus string

type KYCStatus string

type TransactionType string

type ReviewAction string

type ReviewTable string

const (
	TradeStatusOpen    TradeStatus = "open"
	TradeStatusSettled TradeStatus = "settled"
)

const (
	TradeOutcomeWin  TradeOutcome = "win"
	TradeOutcomeLoss TradeOutcome = "loss"
)

const (
	TradeDirectionBuy  TradeDirection = "buy"
	TradeDirectionSell TradeDirection = "sell"
)

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

const (
	TransactionTypeTrade TransactionType = "trade"
	TransactionTypeSwap  TransactionType = "swap"
)

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

const (
	ReviewTableDeposits    ReviewTable = "deposits"
	ReviewTableWithdrawals ReviewTable = "withdrawals"
)
