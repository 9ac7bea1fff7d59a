// Package providers talks to the encyclopedia, translation and exchange-rate services.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/refbot/core/logger"
)

// ErrUnavailable marks an unexpected response from an upstream service.
var ErrUnavailable = errors.New("providers: service unavailable")

const maxBody = 1 << 20

// getJSON issues a GET and decodes a 200 response into out. It returns the status code
// so callers can treat specific codes as normal outcomes.
func getJSON(ctx context.Context, client *http.Client, service, rawURL string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("providers: %s: build request: %w", service, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	took := time.Since(start)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCProviders, slog.LevelWarn, "provider.call",
			slog.String("service", service),
			slog.String("status", "error"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return 0, fmt.Errorf("providers: %s: %w", service, err)
	}
	defer resp.Body.Close()

	logger.LogEvent(ctx, logger.SVCProviders, slog.LevelDebug, "provider.call",
		slog.String("service", service),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return resp.StatusCode, fmt.Errorf("providers: %s: http %d: %w", service, resp.StatusCode, ErrUnavailable)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("providers: %s: decode: %w", service, err)
	}
	return resp.StatusCode, nil
}
