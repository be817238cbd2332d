package main

import (
	"context"
	"log/slog"
	"os"

	"planhub/config"
	"planhub/internal/delivery"
	"planhub/internal/delivery/scheduler"
	"planhub/internal/delivery/worker"
	"planhub/internal/delivery/worker/handler"
	"planhub/internal/domain/service"
	"planhub/internal/infra/auth"
	logs "planhub/internal/infra/log"
	"planhub/internal/infra/metrics"
	"planhub/internal/infra/persistence/sqlstore"
	"planhub/internal/infra/pubsub"
	"planhub/internal/infra/validation"
	"planhub/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		impl.Module,
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		sqlstore.New,
		metrics.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			sqlstore.NewTransactionManager,
			sqlstore.NewPlanRepository,
			sqlstore.NewUserRepository,
			sqlstore.NewUserPlanRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			validation.New,
			service.SystemClock,
			metrics.NewRecorder,
			// The sweeper reports into the same registry the worker serves
			func(m *metrics.Metrics) scheduler.SweepObserver { return m },
		),
		pubsub.Module,
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			scheduler.NewSweeper,
			handler.NewTaskHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				scheduler.New,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start delivery", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
