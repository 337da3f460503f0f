package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/config"
	"github.com/klauern/permisync/internal/history"
	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/store/sheets"
	"github.com/klauern/permisync/internal/store/sqlite"
	syncer "github.com/klauern/permisync/internal/sync"
)

// app bundles the collaborators a command needs, built lazily so offline
// commands never touch the network.
type app struct {
	cfg     *config.Config
	cfgPath string
	state   *config.Store
	local   *sqlite.Store
	history *history.Store
}

// loadApp loads configuration and opens the local collaborators.
func loadApp(cmd *cli.Command) (*app, error) {
	cfgPath := cmd.String("config")
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfgPath = config.FilePath()
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	local, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		state:   config.NewStore(cfg, cfgPath),
		local:   local,
		history: history.NewStore(cfg.Storage.HistoryDir),
	}, nil
}

// Close releases the local store.
func (a *app) Close() error {
	if a.local != nil {
		return a.local.Close()
	}
	return nil
}

// remote builds the worksheet client from the configured credentials.
func (a *app) remote(ctx context.Context) (*sheets.Client, error) {
	return sheets.NewClient(ctx,
		a.cfg.Remote.SpreadsheetID,
		a.cfg.Remote.Worksheet,
		a.cfg.Remote.CredentialsPath,
	)
}

// engine builds the sync engine over the local and remote stores.
func (a *app) engine(ctx context.Context) (*syncer.Engine, error) {
	remote, err := a.remote(ctx)
	if err != nil {
		return nil, err
	}
	return syncer.NewEngine(a.local, remote, a.state, a.cfg.Remote.Worksheet), nil
}

// orchestrator builds the retryable sync orchestrator around the engine.
func (a *app) orchestrator(ctx context.Context) (*syncer.Orchestrator, error) {
	engine, err := a.engine(ctx)
	if err != nil {
		return nil, err
	}

	var events *logging.EventWriter
	if a.cfg.Storage.EventLogPath != "" {
		events = logging.NewEventWriter(a.cfg.Storage.EventLogPath)
	}

	return syncer.NewOrchestrator(syncer.OrchestratorConfig{
		Dispatcher: engine,
		Config:     a.state,
		Schema:     a.local,
		Events:     events,
	}), nil
}

// syncOptions maps the configuration onto orchestrator options.
func (a *app) syncOptions(op syncer.Operation) syncer.Options {
	return syncer.Options{
		Operation:   op,
		CheckSchema: a.cfg.Sync.CheckSchema,
		Timeout:     a.cfg.Sync.Timeout.Std(),
		Retry: syncer.RetryPolicy{
			MaxAttempts:    a.cfg.Sync.MaxAttempts,
			InitialBackoff: a.cfg.Sync.InitialBackoff.Std(),
			Multiplier:     a.cfg.Sync.BackoffMultiplier,
		},
	}
}
