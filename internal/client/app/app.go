// Package app wires the local store, the remote client, the connectivity
// monitor and the synchronizer into one runnable client.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/loansync/internal/client/config"
	"github.com/dmitrijs2005/loansync/internal/client/connectivity"
	"github.com/dmitrijs2005/loansync/internal/client/localstore"
	"github.com/dmitrijs2005/loansync/internal/client/remote"
	"github.com/dmitrijs2005/loansync/internal/client/services"
	"github.com/dmitrijs2005/loansync/internal/client/syncer"
	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/dmitrijs2005/loansync/internal/logging"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	closers []io.Closer

	store   *localstore.Store
	remote  remote.Client
	monitor *connectivity.Monitor
	syncer  *syncer.Service
	ledger  *services.Ledger
}

// NewLogger builds the process logger described by c.
func NewLogger(c *config.Config) (*logging.SlogLogger, io.Closer, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	l, closer := logging.New(logging.Options{File: c.LogFile, Format: c.LogFormat, Level: level})
	return l, closer, nil
}

// NewApp opens the local store and connects the remote client described
// by c. The remote connection is lazy, so NewApp succeeds offline.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.RemoteDSN == "" {
		return nil, errors.New("remote DSN is not configured")
	}
	rc, err := remote.NewPostgresClient(c.RemoteDSN)
	if err != nil {
		return nil, fmt.Errorf("remote init error: %w", err)
	}

	var probers []connectivity.Prober
	var closers []io.Closer
	if c.HealthEndpoint != "" {
		hp, err := connectivity.NewHealthProber(c.HealthEndpoint, "")
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		probers = append(probers, hp)
		closers = append(closers, hp)
	}

	a, err := newApp(ctx, c, logger, rc, probers...)
	if err != nil {
		for _, cl := range closers {
			_ = cl.Close()
		}
		return nil, err
	}
	a.closers = append(a.closers, closers...)
	return a, nil
}

// newApp builds the app around an existing remote client. The remote is
// always probed; extra probers must succeed as well.
func newApp(ctx context.Context, c *config.Config, logger logging.Logger, rc remote.Client, extra ...connectivity.Prober) (*App, error) {
	store := localstore.Open(c.LocalDSN)
	if err := store.Initialize(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("local store init error: %w", err)
	}

	prober := connectivity.Prober(rc)
	if len(extra) > 0 {
		prober = connectivity.AllOf(append([]connectivity.Prober{rc}, extra...)...)
	}
	monitor := connectivity.NewMonitor(prober, c.OnlineCheckInterval, logger)

	a := &App{
		config:  c,
		logger:  logger,
		closers: []io.Closer{store, rc},
		store:   store,
		remote:  rc,
		monitor: monitor,
		syncer:  syncer.New(store, rc, monitor, logger),
		ledger:  services.NewLedger(store, logger),
	}
	monitor.Subscribe(a.onModeChange)
	return a, nil
}

func (a *App) Store() *localstore.Store { return a.store }
func (a *App) Syncer() *syncer.Service { return a.syncer }
func (a *App) Ledger() *services.Ledger { return a.ledger }
func (a *App) Monitor() *connectivity.Monitor { return a.monitor }
func (a *App) Logger() logging.Logger { return a.logger }
func (a *App) Remote() remote.Client { return a.remote }

// Close releases the store, the remote client and any probers.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// onModeChange pushes pending local changes whenever the backend becomes
// reachable.
func (a *App) onModeChange(ctx context.Context, mode connectivity.Mode) {
	a.logger.Info(ctx, "connectivity changed", "mode", string(mode))
	if mode != connectivity.ModeOnline {
		return
	}

	res, err := a.syncer.SyncPendingChanges(ctx)
	switch {
	case errors.Is(err, common.ErrSyncInProgress):
		a.logger.Info(ctx, "sync already running, skipping")
	case err != nil:
		a.logger.Error(ctx, "pending sync failed", "error", err)
	case !res.Success:
		a.logger.Warn(ctx, "pending sync finished with errors", "errors", res.Errors)
	}
}

func (a *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	select {
	case s := <-sigs:
		a.logger.Info(ctx, "shutting down", "signal", s.String())
		cancelFunc()
	case <-ctx.Done():
	}
}

// Watch runs the connectivity monitor until ctx is cancelled or the
// process receives a termination signal. Each transition to online
// triggers a pending-changes sync.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.logger.Info(ctx, "watching connectivity", "interval", a.config.OnlineCheckInterval.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.initSignalHandler(gctx, cancelFunc)
		return nil
	})
	g.Go(func() error {
		a.monitor.Run(gctx)
		return nil
	})
	return g.Wait()
}
