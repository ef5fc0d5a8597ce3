package service

import (
	"context"
	"time"

	"github.com/iliyamo/auth-session-service/internal/apperr"
)

// SweepExpiredTokens deletes every refresh token row that expired before now
// and returns how many went away.
func (s *SessionService) SweepExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// RunSweeper sweeps on every tick until ctx is done. A non-positive interval
// disables it.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpiredTokens(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("Expired token sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int64("deleted", n).Msg("Expired refresh tokens swept")
			}
		}
	}
}
