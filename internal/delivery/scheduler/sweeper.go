// Package scheduler drives the expiry sweep on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	deliverycontext "planhub/internal/delivery/context"
	domainerrors "planhub/internal/domain/errors"
	"planhub/internal/usecase"

	"go.uber.org/fx"
)

// ErrSweepInProgress is returned when a sweep is requested while one runs.
var ErrSweepInProgress = domainerrors.NewBaseError(domainerrors.KindConflict, "SWEEP_IN_PROGRESS", "expiry sweep already running")

// SweepObserver records the outcome of each sweep.
type SweepObserver interface {
	ObserveSweep(elapsed time.Duration, err error)
}

// Sweeper runs at most one expiry sweep at a time, whoever asks for it.
type Sweeper struct {
	subscriptions usecase.SubscriptionUsecase
	observer      SweepObserver
	logger        *slog.Logger
	running       atomic.Bool
}

// SweeperParams holds dependencies for the Sweeper, injected by Fx.
type SweeperParams struct {
	fx.In

	Subscriptions usecase.SubscriptionUsecase
	Observer      SweepObserver
	Logger        *slog.Logger
}

func NewSweeper(params SweeperParams) *Sweeper {
	return &Sweeper{
		subscriptions: params.Subscriptions,
		observer:      params.Observer,
		logger:        params.Logger,
	}
}

// Run performs one sweep and returns the number of expired rows.
// It fails with ErrSweepInProgress instead of waiting for a running sweep.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.running.Store(false)

	logger := deliverycontext.LoggerFrom(ctx, s.logger).
		With(slog.String("trigger", string(deliverycontext.TriggerFrom(ctx))))

	start := time.Now()
	expired, err := s.subscriptions.ExpireDue(ctx)
	elapsed := time.Since(start)
	s.observer.ObserveSweep(elapsed, err)

	if err != nil {
		logger.Error("Expiry sweep failed",
			slog.Int("expired", expired),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err))

		return expired, err
	}

	logger.Debug("Expiry sweep finished", slog.Int("expired", expired), slog.Duration("elapsed", elapsed))

	return expired, nil
}
