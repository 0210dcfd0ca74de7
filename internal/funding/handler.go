package funding

import (
	"errors"
	"net/http"

	"metatradex/internal/assets"
	"metatradex/internal/httputil"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type depositRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	ProofURL string          `json:"proof_url"`
}

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request, userID string) {
	var req depositRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	d, err := h.svc.CreateDeposit(r.Context(), userID, req.Amount, req.Currency, req.ProofURL)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

type withdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	WalletAddress string          `json:"wallet_address"`
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request, userID string) {
	var req withdrawalRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	wd, err := h.svc.CreateWithdrawal(r.Context(), userID, req.Amount, req.Currency, req.WalletAddress)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrKYCRequired):
			status = http.StatusForbidden
		case errors.Is(err, assets.ErrInsufficientFunds):
			status = http.StatusUnprocessableEntity
		}
		httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, wd)
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request, userID string) {
	out, err := h.svc.ListDepositsByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to load deposits"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request, userID string) {
	out, err := h.svc.ListWithdrawalsByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to load withdrawals"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
