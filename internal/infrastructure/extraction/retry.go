package extraction

import (
	"context"
	"log/slog"
	"time"
)

type ProbeFunction func(context.Context) error

// Retry calls probe until it succeeds, retries are exhausted or ctx is done.
func Retry(log *slog.Logger, probe ProbeFunction, retries int, delay time.Duration) ProbeFunction {
	return func(ctx context.Context) error {
		for r := 0; ; r++ {
			err := probe(ctx)
			if err == nil || r >= retries {
				return err
			}

			log.Debug("extraction service probe failed, retrying",
				slog.Int("attempt", r+1),
				slog.Int("max_retries", retries),
				slog.String("err", err.Error()))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
