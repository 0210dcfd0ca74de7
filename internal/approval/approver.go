package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"metatradex/internal/assets"
	"metatradex/internal/types"

	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotPending marks a record already reviewed. Every tier treats
	// it as final so a repeated approval can never credit twice.
	ErrNotPending = errors.New("record is not pending")
	ErrNotFound   = errors.New("record not found")

	// errTierUnavailable means the tier could not reach a verdict at
	// all (endpoint down, procedure missing) and the next tier should
	// be tried.
	errTierUnavailable = errors.New("review tier unavailable")
)

type Approver struct {
	pool        *pgxpool.Pool
	assets      *assets.Service
	client      *resty.Client
	endpointURL string
}

func NewApprover(pool *pgxpool.Pool, assetSvc *assets.Service, endpointURL string) *Approver {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &Approver{pool: pool, assets: assetSvc, client: client, endpointURL: endpointURL}
}

// Review runs the tiered review chain: privileged HTTP endpoint first,
// then the database procedure, then the direct update. A tier that
// reaches a verdict (including "not pending") ends the chain; only a
// tier that cannot answer at all falls through to the next one.
func (a *Approver) Review(ctx context.Context, table types.ReviewTable, action types.ReviewAction, recordID, adminID, bearer string) (types.RequestStatus, error) {
	if table != types.ReviewTableDeposits && table != types.ReviewTableWithdrawals {
		return "", fmt.Errorf("unknown review table %q", table)
	}
	if action != types.ReviewActionApprove && action != types.ReviewActionReject {
		return "", fmt.Errorf("unknown review action %q", action)
	}

	if a.endpointURL != "" {
		status, err := a.reviewViaEndpoint(ctx, table, action, recordID, bearer)
		if err == nil {
			return status, nil
		}
		if !errors.Is(err, errTierUnavailable) {
			return "", err
		}
		log.Printf("[review] endpoint tier unavailable, trying procedure: %v", err)
	}

	status, err := a.reviewViaProcedure(ctx, table, action, recordID, adminID)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, errTierUnavailable) {
		return "", err
	}
	log.Printf("[review] procedure tier unavailable, applying directly: %v", err)

	return a.ApplyDecision(ctx, table, action, recordID, adminID)
}

type endpointRequest struct {
	Action string `json:"action"`
	Table  string `json:"table"`
	ID     string `json:"id"`
}

type endpointResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (a *Approver) reviewViaEndpoint(ctx context.Context, table types.ReviewTable, action types.ReviewAction, recordID, bearer string) (types.RequestStatus, error) {
	var out endpointResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetBody(endpointRequest{Action: string(action), Table: string(table), ID: recordID}).
		SetResult(&out).
		SetError(&out).
		Post(a.endpointURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errTierUnavailable, err)
	}
	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return "", errors.New("review endpoint rejected credentials")
	case resp.StatusCode() >= 500 || resp.StatusCode() == 404:
		return "", fmt.Errorf("%w: endpoint returned %d", errTierUnavailable, resp.StatusCode())
	}
	if !out.Success {
		if out.Error == "Record is not pending" {
			return "", ErrNotPending
		}
		if out.Error == "Record not found" {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("review endpoint: %s", out.Error)
	}
	return types.RequestStatus(out.Status), nil
}

var procedureNames = map[types.ReviewTable]map[types.ReviewAction]string{
	types.ReviewTableDeposits: {
		types.ReviewActionApprove: "approve_deposit",
		types.ReviewActionReject:  "reject_deposit",
	},
	types.ReviewTableWithdrawals: {
		types.ReviewActionApprove: "approve_withdrawal",
		types.ReviewActionReject:  "reject_withdrawal",
	},
}

func (a *Approver) reviewViaProcedure(ctx context.Context, table types.ReviewTable, action types.ReviewAction, recordID, adminID string) (types.RequestStatus, error) {
	proc := procedureNames[table][action]
	var raw []byte
	err := a.pool.QueryRow(ctx,
		fmt.Sprintf("select %s($1::uuid, nullif($2, '')::uuid)", proc),
		recordID, adminID).Scan(&raw)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "42883" || pgErr.Code == "42P01") {
			return "", fmt.Errorf("%w: %s missing", errTierUnavailable, proc)
		}
		return "", err
	}
	var out endpointResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: bad procedure result", errTierUnavailable)
	}
	if !out.Success {
		if out.Error == "Record is not pending" {
			return "", ErrNotPending
		}
		if out.Error == "Record not found" {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("review procedure: %s", out.Error)
	}
	if action == types.ReviewActionApprove {
		return types.RequestStatusApproved, nil
	}
	return types.RequestStatusRejected, nil
}

// ApplyDecision is the last tier: a direct conditional update plus the
// balance effect, in one serializable transaction. The WHERE status =
// 'pending' guard makes it idempotent, and the balance moves only for
// approved deposits and rejected (refunded) withdrawals.
func (a *Approver) ApplyDecision(ctx context.Context, table types.ReviewTable, action types.ReviewAction, recordID, adminID string) (types.RequestStatus, error) {
	if table != types.ReviewTableDeposits && table != types.ReviewTableWithdrawals {
		return "", fmt.Errorf("unknown review table %q", table)
	}
	if action != types.ReviewActionApprove && action != types.ReviewActionReject {
		return "", fmt.Errorf("unknown review action %q", action)
	}
	newStatus := types.RequestStatusRejected
	if action == types.ReviewActionApprove {
		newStatus = types.RequestStatusApproved
	}

	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var userID, currency string
	var amount decimal.Decimal
	query := `
		UPDATE deposits
		SET status = $2, reviewed_by = NULLIF($3, '')::uuid, reviewed_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING user_id::text, amount, currency
	`
	if table == types.ReviewTableWithdrawals {
		query = `
		UPDATE withdrawals
		SET status = $2, reviewed_by = NULLIF($3, '')::uuid, reviewed_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING user_id::text, amount, currency
	`
	}
	err = tx.QueryRow(ctx, query, recordID, string(newStatus), adminID).Scan(&userID, &amount, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", a.classifyMissedUpdate(ctx, table, recordID)
		}
		return "", err
	}

	if creditsBalance(table, action) {
		if err := a.assets.Credit(ctx, tx, userID, currency, amount); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return newStatus, nil
}

// creditsBalance reports which verdicts move money: an approved deposit
// credits its amount, a rejected withdrawal refunds the stake debited at
// request time. The other two verdicts change status only.
func creditsBalance(table types.ReviewTable, action types.ReviewAction) bool {
	return (table == types.ReviewTableDeposits && action == types.ReviewActionApprove) ||
		(table == types.ReviewTableWithdrawals && action == types.ReviewActionReject)
}

func (a *Approver) classifyMissedUpdate(ctx context.Context, table types.ReviewTable, recordID string) error {
	var status string
	err := a.pool.QueryRow(ctx,
		fmt.Sprintf("select status from %s where id = $1::uuid", table), recordID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrNotPending
}
