package trading

import (
	"errors"
	"net/http"
	"strconv"

	"metatradex/internal/assets"
	"metatradex/internal/httputil"
	"metatradex/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type placeRequest struct {
	Symbol      string          `json:"symbol"`
	StakeSymbol string          `json:"stake_symbol"`
	Direction   string          `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Duration    int             `json:"duration"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, userID string) {
	var req placeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	t, err := h.svc.Place(r.Context(), userID, req.Symbol, req.StakeSymbol, types.TradeDirection(req.Direction), req.Amount, req.Duration)
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
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	trades, err := h.svc.ListByUser(r.Context(), userID, limit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to load trades"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to load trade settings"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}
