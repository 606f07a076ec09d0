package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// KeepAlive requests url every interval until ctx ends. Free hosting tiers
// put idle services to sleep, which also stops polling.
func KeepAlive(ctx context.Context, client *http.Client, url string, interval time.Duration, log *zap.Logger) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ping(ctx, client, url); err != nil {
				log.Warn("keep-alive ping failed", zap.String("url", url), zap.Error(err))
				continue
			}
			log.Debug("keep-alive ping", zap.String("url", url))
		}
	}
}

func ping(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
