package marketdata

import (
	"net/http"

	"metatradex/internal/httputil"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.ListAssets(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to load assets"})
		return
	}
	for i := range assets {
		if p, ok := liveQuotes.get(assets[i].Symbol); ok {
			assets[i].Price = p
		}
	}
	httputil.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request, symbol string) {
	a, err := h.store.GetAsset(r.Context(), symbol)
	if err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "asset not found"})
		return
	}
	if p, ok := liveQuotes.get(a.Symbol); ok {
		a.Price = p
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}
