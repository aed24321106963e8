package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DominiquePaul/thisiscrispin/internal/mcpserver"
	"github.com/DominiquePaul/thisiscrispin/internal/storage"
)

func (a *application) prepare() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	// Stdout may carry a protocol, so offline commands log to stderr.
	logger := newLogger(a.config, os.Stderr)
	slog.SetDefault(logger)
	return a.config, logger, nil
}

// RunSync mirrors published posts into the local index once.
func RunSync(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.prepare()
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.blog.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	logger.Info("Sync finished",
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("removed", stats.Removed),
		slog.Int("skipped", stats.Skipped))
	return nil
}

// RunExport syncs the index and writes every post as a markdown file into
// dir, or the configured export directory when dir is empty.
func RunExport(ctx context.Context, dir string, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.prepare()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.Export.Dir
	}

	dst, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("init export dir: %w", err)
	}
	defer dst.Close()

	svc, err := newServices(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.blog.Sync(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	stats, err := svc.blog.Export(ctx, dst)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	logger.Info("Export finished",
		slog.String("dir", dir),
		slog.Int("written", stats.Written),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("moved", stats.Moved),
		slog.Int("removed", stats.Removed))
	return nil
}

// RunMCP serves the blog tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	cfg, logger, err := app.prepare()
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.blog.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server listening on stdio")
	return mcpserver.New(svc.blog, svc.assets).ServeStdio()
}
