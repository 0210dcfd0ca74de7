package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"metatradex/internal/approval"
	"metatradex/internal/httputil"
	"metatradex/internal/model"
	"metatradex/internal/types"
)

// Handler serves the admin console API.
type Handler struct {
	pool      *pgxpool.Pool
	jwtSecret []byte
	approver  *approval.Approver
}

func NewHandler(pool *pgxpool.Pool, jwtSecret string, approver *approval.Approver) *Handler {
	return &Handler{pool: pool, jwtSecret: []byte(jwtSecret), approver: approver}
}

// Login authenticates against the admin_users table and issues a 24h
// admin-role token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}

	var id, passwordHash string
	err := h.pool.QueryRow(r.Context(),
		"SELECT id::text, password_hash FROM admin_users WHERE username = $1", req.Username,
	).Scan(&id, &passwordHash)
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid credentials"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      id,
		"username": req.Username,
		"role":     "admin",
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString(h.jwtSecret)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "token generation failed"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"token":    tokenStr,
		"username": req.Username,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	username, _ := r.Context().Value(adminUsernameKey).(string)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"username": username,
		"role":     "admin",
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pool.Query(r.Context(), `
		SELECT id::text, email, coalesce(first_name, ''), coalesce(last_name, ''), coalesce(country, ''),
		       is_admin, kyc_status, coalesce(id_document_url, ''), trade_override_status, created_at
		FROM profiles
		ORDER BY created_at DESC
	`)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	defer rows.Close()
	users := make([]model.Profile, 0, 32)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Country,
			&p.IsAdmin, &p.KYCStatus, &p.IDDocumentURL, &p.TradeOverrideStatus, &p.CreatedAt); err != nil {
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		users = append(users, p)
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) GetUserBalances(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	rows, err := h.pool.Query(r.Context(),
		"select id::text, user_id::text, symbol, amount from user_assets where user_id = $1::uuid order by symbol", userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	defer rows.Close()
	out := make([]model.UserAsset, 0, 4)
	for rows.Next() {
		var a model.UserAsset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Symbol, &a.Amount); err != nil {
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		out = append(out, a)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// SetUserBalance overwrites a balance outright. AddUserBalance below is
// the safer increment form.
func (h *Handler) SetUserBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		Symbol string          `json:"symbol"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" || req.Amount.IsNegative() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol required, amount must be >= 0"})
		return
	}
	_, err := h.pool.Exec(r.Context(), `
		INSERT INTO user_assets (user_id, symbol, amount)
		VALUES ($1::uuid, $2, $3)
		ON CONFLICT (user_id, symbol)
		DO UPDATE SET amount = EXCLUDED.amount
	`, userID, req.Symbol, req.Amount)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// AddUserBalance applies a signed adjustment inside the database, so
// concurrent settlements cannot lose the admin's change.
func (h *Handler) AddUserBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		Symbol string          `json:"symbol"`
		Delta  decimal.Decimal `json:"delta"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" || req.Delta.IsZero() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol and non-zero delta required"})
		return
	}
	_, err := h.pool.Exec(r.Context(), `
		INSERT INTO user_assets (user_id, symbol, amount)
		VALUES ($1::uuid, $2, GREATEST(0, $3::numeric))
		ON CONFLICT (user_id, symbol)
		DO UPDATE SET amount = GREATEST(0, user_assets.amount + $3::numeric)
	`, userID, req.Symbol, req.Delta)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetOverride pins the next settlements of a user to win or loss. A null
// status clears the pin and settlements go back to the random draw.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		Status *string `json:"status"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	if req.Status != nil && *req.Status != "win" && *req.Status != "loss" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "status must be win, loss or null"})
		return
	}
	tag, err := h.pool.Exec(r.Context(),
		"update profiles set trade_override_status = $2 where id = $1::uuid", userID, req.Status)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "user not found"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		Action string `json:"action"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	newStatus := ""
	switch types.ReviewAction(req.Action) {
	case types.ReviewActionApprove:
		newStatus = string(types.KYCStatusApproved)
	case types.ReviewActionReject:
		newStatus = string(types.KYCStatusRejected)
	default:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "action must be approve or reject"})
		return
	}
	tag, err := h.pool.Exec(r.Context(), `
		UPDATE profiles
		SET kyc_status = $2
		WHERE id = $1::uuid
		  AND kyc_status = 'pending'
	`, userID, newStatus)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if tag.RowsAffected() == 0 {
		httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "no pending KYC submission"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"kyc_status": newStatus})
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, types.ReviewTableDeposits)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, types.ReviewTableWithdrawals)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request, table types.ReviewTable) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	extra := "coalesce(proof_url, '')"
	if table == types.ReviewTableWithdrawals {
		extra = "wallet_address"
	}
	query := `
		SELECT id::text, user_id::text, amount, currency, ` + extra + `, status,
		       coalesce(reviewed_by::text, ''), reviewed_at, created_at
		FROM ` + string(table) + `
	`
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := h.pool.Query(r.Context(), query, args...)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	defer rows.Close()

	type requestRow struct {
		ID         string              `json:"id"`
		UserID     string              `json:"user_id"`
		Amount     decimal.Decimal     `json:"amount"`
		Currency   string              `json:"currency"`
		Detail     string              `json:"detail"`
		Status     types.RequestStatus `json:"status"`
		ReviewedBy string              `json:"reviewed_by,omitempty"`
		ReviewedAt *time.Time          `json:"reviewed_at"`
		CreatedAt  time.Time           `json:"created_at"`
	}
	out := make([]requestRow, 0, 16)
	for rows.Next() {
		var row requestRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Amount, &row.Currency, &row.Detail,
			&row.Status, &row.ReviewedBy, &row.ReviewedAt, &row.CreatedAt); err != nil {
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		out = append(out, row)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// ReviewRequest runs the tiered review chain for a deposit or withdrawal.
// The caller's bearer token is passed through so the privileged endpoint
// sees the same admin identity.
func (h *Handler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	table := types.ReviewTable(chi.URLParam(r, "table"))
	recordID := chi.URLParam(r, "id")
	var req struct {
		Action string `json:"action"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	adminID, _ := r.Context().Value(adminIDKey).(string)
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	status, err := h.approver.Review(r.Context(), table, types.ReviewAction(req.Action), recordID, adminID, bearer)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrNotPending):
			httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "record is not pending"})
		case errors.Is(err, approval.ErrNotFound):
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "record not found"})
		default:
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) ListTradeSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.pool.Query(r.Context(),
		"select id::text, duration, win_rate, loss_rate, min_capital from trade_settings order by duration")
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	defer rows.Close()
	out := make([]model.TradeSetting, 0, 4)
	for rows.Next() {
		var ts model.TradeSetting
		if err := rows.Scan(&ts.ID, &ts.Duration, &ts.WinRate, &ts.LossRate, &ts.MinCapital); err != nil {
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		out = append(out, ts)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateTradeSetting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		WinRate    decimal.Decimal `json:"win_rate"`
		LossRate   decimal.Decimal `json:"loss_rate"`
		MinCapital decimal.Decimal `json:"min_capital"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	if req.WinRate.IsNegative() || req.WinRate.GreaterThan(decimal.NewFromInt(1)) ||
		req.LossRate.IsNegative() || req.LossRate.GreaterThan(decimal.NewFromInt(1)) ||
		req.MinCapital.IsNegative() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "rates must be within [0,1], min capital >= 0"})
		return
	}
	var ts model.TradeSetting
	err := h.pool.QueryRow(r.Context(), `
		UPDATE trade_settings
		SET win_rate = $2, loss_rate = $3, min_capital = $4
		WHERE id = $1::uuid
		RETURNING id::text, duration, win_rate, loss_rate, min_capital
	`, id, req.WinRate, req.LossRate, req.MinCapital).Scan(
		&ts.ID, &ts.Duration, &ts.WinRate, &ts.LossRate, &ts.MinCapital)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "trade setting not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ts)
}

// AdminAuthMiddleware validates the admin JWT and stashes the admin's
// identity on the request context.
func AdminAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing authorization"})
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid authorization format"})
				return
			}
			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{Error: "invalid token"})
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid claims"})
				return
			}
			role, _ := claims["role"].(string)
			if role != "admin" {
				httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{Error: "admin access required"})
				return
			}
			username, _ := claims["username"].(string)
			adminID, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), adminUsernameKey, username)
			ctx = context.WithValue(ctx, adminIDKey, adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type contextKey string

const adminUsernameKey contextKey = "admin_username"
const adminIDKey contextKey = "admin_id"
