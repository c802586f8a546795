package app

import (
	"context"
	"log/slog"
	"time"

	"adoptify-web/internal/metrics"
	"adoptify-web/internal/session"
)

func sweepOnce(ctx context.Context, sweeper session.Sweeper, idleFor time.Duration, log *slog.Logger) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	removed, err := sweeper.Sweep(ctx, idleFor)
	if err != nil {
		log.Error("session sweep failed", "error", err)
		return 0
	}

	if removed > 0 {
		metrics.SessionsSweptTotal.Add(float64(removed))
		log.Info("idle sessions swept", "removed", removed, "idle_for", idleFor.String())
	}
	return removed
}
