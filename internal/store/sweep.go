package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep expires sessions idle for longer than ttl every interval until ctx is
// done. Expire failures are logged and the loop keeps going.
func Sweep(ctx context.Context, st Store, ttl, interval time.Duration, log *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := st.Expire(ctx, now.Add(-ttl))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("expired idle sessions", zap.Int("count", n), zap.Duration("ttl", ttl))
			}
		}
	}
}
