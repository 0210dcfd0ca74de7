package marketdata

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type Quote struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Timestamp int64  `json:"ts"`
}

type QuoteWS struct {
	origin   string
	store    *Store
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewQuoteWS(origin string, store *Store, interval time.Duration) *QuoteWS {
	return &QuoteWS{
		origin:   origin,
		store:    store,
		interval: interval,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) }},
	}
}

func (h *QuoteWS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		symbol = "BTC"
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-ticker.C:
			price, err := h.store.LivePrice(r.Context(), symbol)
			if err != nil {
				continue
			}
			msg := Quote{Type: "quote", Symbol: symbol, Price: price.String(), Timestamp: time.Now().UTC().Unix()}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	return strings.EqualFold(r.Header.Get("Origin"), origin)
}
