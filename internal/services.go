package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/blog"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/index"
	"github.com/DominiquePaul/thisiscrispin/internal/metrics"
	"github.com/DominiquePaul/thisiscrispin/internal/ratelimit"
)

var (
	_ blog.ContentStore = (*cms.Client)(nil)
	_ assets.Store      = (*cms.Client)(nil)
)

// services are the collaborators shared by every command.
type services struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	cms     *cms.Client
	index   *index.DB
	blog    *blog.Service
	assets  *assets.Pipeline
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// newServices opens the post index and builds the CMS-backed services.
// events may be nil.
func newServices(cfg *Config, logger *slog.Logger, events blog.Events) (*services, error) {
	m := metrics.New()

	client := cms.New(cfg.CMS.Client(), cms.WithRecorder(m))

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	blogOpts := []blog.Option{
		blog.WithLogger(logger),
		blog.WithRecorder(m),
		blog.WithContentType(cfg.CMS.ContentType),
	}
	if events != nil {
		blogOpts = append(blogOpts, blog.WithEvents(events))
	}

	return &services{
		logger:  logger,
		metrics: m,
		cms:     client,
		index:   db,
		blog:    blog.NewService(client, db, blogOpts...),
		assets: assets.New(client, cfg.Assets.Pipeline(),
			assets.WithLogger(logger),
			assets.WithRecorder(m)),
	}, nil
}

func (s *services) Close() error {
	return s.index.Close()
}

// newAttemptStore returns the lockout store named by the config and a
// function releasing it.
func newAttemptStore(ctx context.Context, cfg RateLimitConfig, logger *slog.Logger) (ratelimit.Store, func(), error) {
	if cfg.Store != RateLimitStorePostgres {
		logger.Warn("login lockout state is process-local; run a single instance or use the postgres store")
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	if err := ratelimit.Migrate(ctx, cfg.PostgresDSN); err != nil {
		return nil, nil, fmt.Errorf("migrate rate limit store: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rate limit store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping rate limit store: %w", err)
	}
	return ratelimit.NewPGStore(pool), pool.Close, nil
}
