// Package assets turns raw image bytes into a usable CMS asset: optimize,
// upload, create, process, wait for the file URL, publish.
//
// Only the upload and create steps can fail the call. Later failures degrade
// to a returned Record whose Status says how far the asset got, and whose URL
// is always renderable (a placeholder when no real URL exists).
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
)

// Status is the lifecycle position of an asset.
type Status string

const (
	StatusUnprocessed          Status = "unprocessed"
	StatusProcessing           Status = "processing"
	StatusProcessedUnpublished Status = "processed_unpublished"
	StatusPublished            Status = "published"
	StatusProcessingFailed     Status = "processing_failed"
)

var (
	ErrUploadFailed        = errors.New("asset upload failed")
	ErrAssetCreationFailed = errors.New("asset creation failed")

	errNotReady = errors.New("asset file url not available yet")
)

// Record describes an ingested or refreshed asset.
type Record struct {
	ID               string `json:"id"`
	Status           Status `json:"status"`
	URL              string `json:"url"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ContentType      string `json:"contentType"`
	OriginalFilename string `json:"originalFilename,omitempty"`
	FileName         string `json:"fileName,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

// Upload is a file handed to Ingest.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Store is the subset of the CMS client the pipeline needs.
type Store interface {
	CreateUpload(ctx context.Context, data []byte) (string, error)
	CreateAsset(ctx context.Context, in cms.NewAsset) (cms.Asset, error)
	ProcessAsset(ctx context.Context, id string, version int) error
	GetAsset(ctx context.Context, id string) (cms.Asset, error)
	PublishAsset(ctx context.Context, id string, version int) (cms.Asset, error)
	Locale() string
}

// Recorder observes pipeline outcomes.
type Recorder interface {
	AssetIngested(status string)
	PollAttempts(n int)
}

// Config tunes the pipeline. Zero values fall back to the defaults.
type Config struct {
	LargeFileThreshold int
	MaxDimension       int
	MaxUploadBytes     int
	PollAttempts       int
	PollInitialDelay   time.Duration
	PollMaxDelay       time.Duration
}

const (
	DefaultMaxUploadBytes   = 5 << 20
	DefaultPollAttempts     = 5
	DefaultPollInitialDelay = 500 * time.Millisecond
	DefaultPollMaxDelay     = 4 * time.Second
)

func (c Config) withDefaults() Config {
	if c.LargeFileThreshold <= 0 {
		c.LargeFileThreshold = DefaultLargeFileThreshold
	}
	if c.MaxDimension <= 0 {
		c.MaxDimension = DefaultMaxDimension
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	if c.PollInitialDelay <= 0 {
		c.PollInitialDelay = DefaultPollInitialDelay
	}
	if c.PollMaxDelay <= 0 {
		c.PollMaxDelay = DefaultPollMaxDelay
	}
	return c
}

// Pipeline ingests uploads into the CMS.
type Pipeline struct {
	store     Store
	cfg       Config
	optimizer Optimizer
	logger    *slog.Logger
	recorder  Recorder
	now       func() time.Time
	newTimer  func() backoff.Timer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func WithRecorder(r Recorder) Option { return func(p *Pipeline) { p.recorder = r } }

// WithClock overrides the clock used for generated names and descriptions.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// WithTimer overrides the timer that spaces out readiness polls.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(p *Pipeline) { p.newTimer = newTimer }
}

// New creates a Pipeline over store.
func New(store Store, cfg Config, opts ...Option) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		store:     store,
		cfg:       cfg,
		optimizer: Optimizer{Threshold: cfg.LargeFileThreshold, MaxDimension: cfg.MaxDimension},
		logger:    slog.Default(),
		now:       time.Now,
		newTimer:  func() backoff.Timer { return nil },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxUploadBytes is the largest accepted upload.
func (p *Pipeline) MaxUploadBytes() int { return p.cfg.MaxUploadBytes }

// Ingest runs the full pipeline. Validation, upload and creation failures are
// returned as errors; every later failure yields a degraded Record.
//
// Once the upload has been sent the remote calls ignore cancellation of ctx
// so no asset is left half-created. Cancelling ctx only cuts the readiness
// wait short.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (Record, error) {
	if len(up.Data) == 0 {
		return Record{}, apperr.Validation("no file provided")
	}
	if len(up.Data) > p.cfg.MaxUploadBytes {
		return Record{}, apperr.Validation("file too large: %d bytes (max %d)", len(up.Data), p.cfg.MaxUploadBytes)
	}
	ct := strings.TrimSpace(strings.Split(up.ContentType, ";")[0])
	if ct == "" || ct == "application/octet-stream" {
		ct = sniff(up.Data)
	}
	if !strings.HasPrefix(ct, "image/") {
		return Record{}, apperr.Validation("only image files are allowed, got %s", ct)
	}

	rec := Record{Status: StatusUnprocessed, OriginalFilename: up.Filename}
	img := p.optimizer.Optimize(up.Data, ct)
	rec.Width, rec.Height, rec.ContentType = img.Width, img.Height, img.ContentType
	if img.Resized {
		p.logger.Info("assets: resized",
			slog.String("file", up.Filename),
			slog.Int("from_bytes", len(up.Data)),
			slog.Int("to_bytes", len(img.Data)),
			slog.Int("width", img.Width),
			slog.Int("height", img.Height))
	}

	rctx := context.WithoutCancel(ctx)
	uploadID, err := p.store.CreateUpload(rctx, img.Data)
	if err != nil {
		p.logger.Error("assets: upload failed", slog.String("file", up.Filename), slog.String("error", err.Error()))
		return rec, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	now := p.now()
	rec.FileName = generatedName(up.Filename, rec.ContentType, now)
	title := strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename))
	if title == "" || title == "." {
		title = strings.TrimSuffix(rec.FileName, filepath.Ext(rec.FileName))
	}
	asset, err := p.store.CreateAsset(rctx, cms.NewAsset{
		UploadID:    uploadID,
		FileName:    rec.FileName,
		ContentType: rec.ContentType,
		Title:       title,
		Description: "Uploaded on " + now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Error("assets: create failed", slog.String("file", rec.FileName), slog.String("error", err.Error()))
		return rec, fmt.Errorf("%w: %w", ErrAssetCreationFailed, err)
	}
	rec.ID = asset.Sys.ID
	rec.Status = StatusProcessing

	if err := p.store.ProcessAsset(rctx, rec.ID, asset.Sys.Version); err != nil {
		p.logger.Warn("assets: processing failed", slog.String("id", rec.ID), slog.String("error", err.Error()))
		rec.Status = StatusProcessingFailed
		rec.URL = Placeholder(rec.ID)
		rec.Warning = err.Error()
		return p.finish(rec), nil
	}

	ready, err := p.awaitURL(ctx, rctx, rec.ID)
	if err != nil {
		p.logger.Warn("assets: file url not ready", slog.String("id", rec.ID), slog.String("error", err.Error()))
		rec.Status = StatusProcessedUnpublished
		rec.URL = Placeholder(rec.ID)
		rec.Warning = err.Error()
		return p.finish(rec), nil
	}
	rec.URL = ready.URL(p.store.Locale())
	rec.Status = StatusProcessedUnpublished
	if rec.Width == 0 {
		rec.Width, rec.Height = imageSize(ready, p.store.Locale())
	}

	if _, err := p.store.PublishAsset(rctx, rec.ID, ready.Sys.Version); err != nil {
		p.logger.Warn("assets: publish failed", slog.String("id", rec.ID), slog.String("error", err.Error()))
		rec.Warning = err.Error()
		return p.finish(rec), nil
	}
	rec.Status = StatusPublished
	return p.finish(rec), nil
}

// Refresh reports the current state of an existing asset and publishes it
// when it is processed but not yet published. A failed publish is reported in
// Warning, not returned.
func (p *Pipeline) Refresh(ctx context.Context, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, apperr.Validation("asset id is required")
	}
	a, err := p.store.GetAsset(ctx, id)
	if err != nil {
		return Record{}, err
	}
	loc := p.store.Locale()
	rec := Record{ID: a.Sys.ID, URL: a.URL(loc)}
	if f, ok := a.File(loc); ok {
		rec.ContentType = f.ContentType
		rec.FileName = f.FileName
	}
	rec.Width, rec.Height = imageSize(a, loc)

	switch {
	case a.Published() && rec.URL != "":
		rec.Status = StatusPublished
	case rec.URL != "":
		rec.Status = StatusProcessedUnpublished
	default:
		rec.Status = StatusProcessing
	}
	if rec.Status != StatusProcessedUnpublished {
		return rec, nil
	}

	if _, err := p.store.PublishAsset(ctx, id, a.Sys.Version); err != nil {
		p.logger.Warn("assets: publish on refresh failed", slog.String("id", id), slog.String("error", err.Error()))
		rec.Warning = err.Error()
		return rec, nil
	}
	rec.Status = StatusPublished
	return rec, nil
}

// awaitURL polls until the asset exposes a file URL, backing off between
// attempts. Waiting stops when waitCtx is done; the polls themselves use
// callCtx.
func (p *Pipeline) awaitURL(waitCtx, callCtx context.Context, id string) (cms.Asset, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.PollInitialDelay
	eb.MaxInterval = p.cfg.PollMaxDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.cfg.PollAttempts-1)), waitCtx)

	var (
		ready    cms.Asset
		attempts int
	)
	op := func() error {
		attempts++
		a, err := p.store.GetAsset(callCtx, id)
		if err != nil {
			return err
		}
		if a.URL(p.store.Locale()) == "" {
			return errNotReady
		}
		ready = a
		return nil
	}
	notify := func(err error, next time.Duration) {
		p.logger.Debug("assets: waiting for file url",
			slog.String("id", id), slog.Int("attempt", attempts), slog.Duration("next", next), slog.String("reason", err.Error()))
	}
	err := backoff.RetryNotifyWithTimer(op, b, notify, p.newTimer())
	if p.recorder != nil {
		p.recorder.PollAttempts(attempts)
	}
	return ready, err
}

func (p *Pipeline) finish(rec Record) Record {
	if p.recorder != nil {
		p.recorder.AssetIngested(string(rec.Status))
	}
	p.logger.Info("assets: ingested",
		slog.String("id", rec.ID),
		slog.String("status", string(rec.Status)),
		slog.String("file", rec.FileName))
	return rec
}

func imageSize(a cms.Asset, locale string) (int, int) {
	f, ok := a.File(locale)
	if !ok || f.Details == nil || f.Details.Image == nil {
		return 0, 0
	}
	return f.Details.Image.Width, f.Details.Image.Height
}

var mimeToExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
}

// ExtensionFor returns the file extension for an image content type, or "".
func ExtensionFor(contentType string) string {
	return mimeToExt[strings.Split(contentType, ";")[0]]
}

// generatedName is "<unix millis>-<random>.<ext>", keeping the original
// extension when there is one.
func generatedName(original, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" || len(ext) > 6 {
		ext = ExtensionFor(contentType)
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, ext)
}

// AltText derives image alt text from a file name: its stem, or "image".
func AltText(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return "image"
	}
	return stem
}
