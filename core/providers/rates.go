package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/refbot/core/logger"
)

// ExchangeRates fetches rate snapshots and caches them for a TTL. Concurrent misses
// for the same base share one upstream request.
type ExchangeRates struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cachedRates
}

type cachedRates struct {
	rates   map[string]float64
	fetched time.Time
}

// NewExchangeRates builds the client. An empty baseURL selects api.exchangerate-api.com;
// ttl <= 0 disables caching.
func NewExchangeRates(client *http.Client, baseURL string, ttl time.Duration) *ExchangeRates {
	if baseURL == "" {
		baseURL = "https://api.exchangerate-api.com"
	}
	return &ExchangeRates{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedRates),
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Snapshot returns currency code to rate relative to base. The map must not be modified.
func (e *ExchangeRates) Snapshot(ctx context.Context, base string) (map[string]float64, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if rates, ok := e.cached(base); ok {
		return rates, nil
	}

	ch := e.group.DoChan(base, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		return e.fetch(fetchCtx, base)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]float64), nil
	}
}

func (e *ExchangeRates) cached(base string) (map[string]float64, bool) {
	if e.ttl <= 0 {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache[base]
	if !ok || e.now().Sub(entry.fetched) >= e.ttl {
		return nil, false
	}
	return entry.rates, true
}

func (e *ExchangeRates) fetch(ctx context.Context, base string) (map[string]float64, error) {
	var out ratesResponse
	if _, err := getJSON(ctx, e.client, "rates", e.baseURL+"/v4/latest/"+base, &out); err != nil {
		return nil, err
	}
	if len(out.Rates) == 0 {
		return nil, fmt.Errorf("providers: rates: empty snapshot: %w", ErrUnavailable)
	}

	e.mu.Lock()
	e.cache[base] = cachedRates{rates: out.Rates, fetched: e.now()}
	e.mu.Unlock()

	logger.LogEvent(ctx, logger.SVCProviders, slog.LevelDebug, "rates.refreshed",
		slog.String("base", base),
		slog.Int("currencies", len(out.Rates)),
	)
	return out.Rates, nil
}
