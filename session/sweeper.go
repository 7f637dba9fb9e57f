package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweep evicts expired sessions every interval until ctx is cancelled.
func Sweep(ctx context.Context, store Store, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := store.DeleteExpired(ctx, now)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Err(err).Msg("[session] sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("removed", n).Msg("[session] expired sessions evicted")
			}
		}
	}
}
