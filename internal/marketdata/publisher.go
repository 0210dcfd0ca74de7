package marketdata

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// quoteCache holds the latest simulated price per symbol. The WebSocket
// handlers read from here, the publisher goroutine writes to it.
type quoteCache struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

var liveQuotes = quoteCache{prices: map[string]decimal.Decimal{}}

func (c *quoteCache) get(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[symbol]
	return p, ok
}

func (c *quoteCache) set(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	c.prices[symbol] = price
	c.mu.Unlock()
}

// StartPublisher runs a background goroutine that perturbs every asset
// price with a small random walk and periodically persists the moved
// prices back to the assets table.
func (s *Store) StartPublisher(ctx context.Context, interval time.Duration) {
	assets, err := s.ListAssets(ctx)
	if err != nil {
		log.Printf("[publisher] initial load failed: %v", err)
		return
	}
	for _, a := range assets {
		liveQuotes.set(a.Symbol, a.Price)
	}
	log.Printf("[publisher] tracking %d assets, interval=%s", len(assets), interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		persist := time.NewTicker(30 * time.Second)
		defer persist.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				liveQuotes.mu.Lock()
				for sym, price := range liveQuotes.prices {
					liveQuotes.prices[sym] = perturb(price, rand.Float64())
				}
				liveQuotes.mu.Unlock()
			case <-persist.C:
				liveQuotes.mu.RLock()
				snapshot := make(map[string]decimal.Decimal, len(liveQuotes.prices))
				for sym, price := range liveQuotes.prices {
					snapshot[sym] = price
				}
				liveQuotes.mu.RUnlock()
				for sym, price := range snapshot {
					if err := s.UpdatePrice(ctx, sym, price); err != nil {
						log.Printf("[publisher] persist %s: %v", sym, err)
					}
				}
			}
		}
	}()
}

// perturb moves a price by up to ±0.25%. Stable symbols would need a
// flag on the assets table; for now every tracked asset drifts.
func perturb(price decimal.Decimal, draw float64) decimal.Decimal {
	if price.IsZero() {
		return price
	}
	factor := decimal.NewFromFloat(1 + (draw-0.5)*0.005)
	return price.Mul(factor).Round(8)
}

// LivePrice returns the latest published price for a symbol, falling
// back to the stored price when the publisher has not seen it yet.
func (s *Store) LivePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if p, ok := liveQuotes.get(symbol); ok {
		return p, nil
	}
	a, err := s.GetAsset(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return a.Price, nil
}
