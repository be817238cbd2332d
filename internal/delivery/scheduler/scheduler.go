package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"planhub/config"
	"planhub/internal/delivery"
	deliverycontext "planhub/internal/delivery/context"
	"planhub/internal/errors"

	"go.uber.org/fx"
)

// Scheduler starts a sweep on every tick. Ticks that arrive while a sweep is
// still running are dropped.
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *slog.Logger

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// Params holds dependencies for the Scheduler, injected by Fx.
type Params struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     *config.Config
	Sweeper *Sweeper
	Logger  *slog.Logger
}

// New creates the scheduler delivery. A non-positive interval disables it.
func New(params Params) (delivery.Delivery, error) {
	if params.Cfg.Subscription == nil {
		return nil, errors.New("subscription config is required")
	}

	s := &Scheduler{
		sweeper:  params.Sweeper,
		interval: params.Cfg.Subscription.ExpiryInterval,
		logger:   params.Logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: s.shutdown,
	})

	return s, nil
}

// Serve ticks until ctx is done or the scheduler is stopped, then waits for
// the running sweep to return.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("Expiry scheduler disabled")

		return nil
	}

	s.started.Store(true)
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("Starting expiry scheduler", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()

			return nil
		case <-s.stop:
			cancel()
			s.wg.Wait()

			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		_, err := s.sweeper.Run(deliverycontext.NewJob(ctx, s.logger, deliverycontext.TriggerScheduler))
		if errors.Is(err, ErrSweepInProgress) {
			s.logger.Debug("Expiry tick dropped, previous sweep still running")
		}
	}()
}

// shutdown cancels the running sweep and waits for Serve to return.
func (s *Scheduler) shutdown(ctx context.Context) error {
	s.logger.Info("Stopping expiry scheduler")
	close(s.stop)

	if !s.started.Load() {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}
