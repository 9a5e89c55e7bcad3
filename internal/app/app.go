package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/toolgrid/internal/catalog"
	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/engine"
	"github.com/specialistvlad/toolgrid/internal/executor"
	"github.com/specialistvlad/toolgrid/internal/graphstore"
	"github.com/specialistvlad/toolgrid/internal/notify"
	"github.com/specialistvlad/toolgrid/internal/storage"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger   *slog.Logger
	config   *Config
	catalog  *catalog.Catalog
	graphs   *graphstore.FileStore
	engine   *engine.Engine
	notifier notify.Notifier

	healthServer *http.Server
}

// NewApp wires the application from cfg. Diagnostics go to logW. A nil
// runner spawns real processes.
func NewApp(ctx context.Context, logW io.Writer, cfg *Config, runner executor.Runner) (*App, error) {
	logger := newLogger(cfg, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	files, err := storage.NewLocal(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}
	logger.Debug("File storage ready.", "root", files.Root())

	cat, err := catalog.Load(ctx, cfg.CatalogPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}
	logger.Debug("Tool catalog loaded.", "tools", len(cat.IDs()))

	graphs, err := graphstore.NewFileStore(cfg.GraphsPath)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotifyURL != "" {
		sio, err := notify.NewSocketIO(ctx, notify.SocketIOConfig{URL: cfg.NotifyURL, Namespace: cfg.NotifyNamespace})
		if err != nil {
			return nil, err
		}
		notifier = sio
	}

	if runner == nil {
		runner = executor.NewProcessRunner()
	}
	eng := engine.New(files, runner,
		engine.WithCatalog(cat),
		engine.WithWorkers(cfg.WorkerCount),
		engine.WithNotifier(notifier),
	)

	return &App{
		logger:   logger,
		config:   cfg,
		catalog:  cat,
		graphs:   graphs,
		engine:   eng,
		notifier: notifier,
	}, nil
}

// Tools returns the tool catalog.
func (a *App) Tools() map[string]workflow.ToolDef {
	return a.catalog.All()
}

// Close releases the app's background resources.
func (a *App) Close() error {
	return a.notifier.Close()
}
