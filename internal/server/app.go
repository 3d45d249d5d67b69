// Package server initializes and runs the checksum reconciliation daemon.
// It wires the repositories, the checksum worker pool, and a periodic sweep
// that enqueues resources with missing or incomplete checksum documents,
// and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/logging"
	"github.com/termstore/termstore/internal/server/config"
	"github.com/termstore/termstore/internal/server/repositories/repomanager"
	"github.com/termstore/termstore/internal/server/services"
	"github.com/termstore/termstore/internal/server/tasks"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	rm        repomanager.RepositoryManager
	checksums *services.ChecksumService
	worker    *tasks.Worker
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	rm, err := repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	cs := services.NewChecksumService(rm, logger, c.ChecksumsToggle)
	worker := tasks.NewWorker(cs, logger, c.WorkerCount, c.QueueSize)
	cs.SetDispatcher(worker)

	return &App{config: c, logger: logger, rm: rm, checksums: cs, worker: worker}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// reconcile periodically enqueues resources whose checksum document is
// absent or incomplete.
func (app *App) reconcile(ctx context.Context) {
	ticker := time.NewTicker(app.config.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.sweep(ctx); err != nil {
				app.logger.Error(ctx, "reconcile sweep failed", "error", err.Error())
			}
		}
	}
}

func (app *App) sweep(ctx context.Context) error {
	batch := app.config.ReconcileBatchSize

	conceptRows, err := app.rm.Concepts().SelectMissingChecksums(ctx, batch)
	if err != nil {
		return err
	}
	mappingRows, err := app.rm.Mappings().SelectMissingChecksums(ctx, batch)
	if err != nil {
		return err
	}

	enqueued := 0
	for _, c := range conceptRows {
		if err := app.worker.Dispatch(ctx, c.ResourceType(), c.ID); err != nil {
			if errors.Is(err, common.ErrQueueFull) {
				app.logger.Warn(ctx, "checksum queue full, deferring to next sweep", "enqueued", enqueued)
				return nil
			}
			return err
		}
		enqueued++
	}
	for _, m := range mappingRows {
		if err := app.worker.Dispatch(ctx, m.ResourceType(), m.ID); err != nil {
			if errors.Is(err, common.ErrQueueFull) {
				app.logger.Warn(ctx, "checksum queue full, deferring to next sweep", "enqueued", enqueued)
				return nil
			}
			return err
		}
		enqueued++
	}

	if enqueued > 0 {
		app.logger.Info(ctx, "enqueued stale resources", "count", enqueued)
	}
	return nil
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "toggle", app.config.ChecksumsToggle)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.worker.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reconcile(ctx)
	}()

	wg.Wait()

	if err := app.rm.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
