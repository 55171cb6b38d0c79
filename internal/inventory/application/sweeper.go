package application

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires reservations whose TTL lapsed without a
// payment, returning the held quantity to the available pool.
type Sweeper struct {
	log      *slog.Logger
	svc      *Service
	interval time.Duration
	batch    int
}

func NewSweeper(log *slog.Logger, svc *Service) *Sweeper {
	return &Sweeper{
		log:      log,
		svc:      svc,
		interval: time.Minute,
		batch:    100,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reservation sweeper stopping")
			return nil
		case <-t.C:
			n, err := s.svc.ExpireDue(ctx, s.batch)
			if err != nil {
				s.log.Error("expiry sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.log.Info("expired reservations released", "count", n)
			}
		}
	}
}
