// Package blog serves published posts from the local index and writes
// post changes through to the CMS.
package blog

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/index"
)

// DefaultContentType is the CMS content type holding posts.
const DefaultContentType = "markdownrtc"

// ContentStore is the subset of the CMS client the service needs.
type ContentStore interface {
	Locale() string
	GetEntry(ctx context.Context, id string) (cms.Entry, error)
	CreateEntry(ctx context.Context, contentType string, fields cms.Fields) (cms.Entry, error)
	MergeEntryFields(ctx context.Context, id string, values map[string]any) (cms.Entry, error)
	PublishEntry(ctx context.Context, id string, version int) (cms.Entry, error)
	FindEntries(ctx context.Context, q cms.EntryQuery) (cms.Collection[cms.Entry], error)
	UpdateEntryTags(ctx context.Context, id string, tagIDs []string) (cms.Entry, error)
	ListTags(ctx context.Context) ([]cms.Tag, error)
	CreateTag(ctx context.Context, id, name string) (cms.Tag, error)
	ListContentTypes(ctx context.Context) ([]cms.ContentType, error)
	DeliveryEntries(ctx context.Context, q cms.DeliveryQuery) (cms.DeliveryPage, error)
	AllDeliveryEntries(ctx context.Context, q cms.DeliveryQuery) (cms.DeliveryPage, error)
}

// Events receives entry change notifications.
type Events interface {
	PublishEntryEvent(kind, id, slug string)
}

// Recorder receives index size updates.
type Recorder interface {
	PostsIndexed(n int)
}

// Service coordinates the CMS and the post index.
type Service struct {
	store       ContentStore
	idx         index.PostIndex
	contentType string
	logger      *slog.Logger
	events      Events
	recorder    Recorder

	syncMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEvents sets the change notification sink.
func WithEvents(e Events) Option {
	return func(s *Service) { s.events = e }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithContentType overrides DefaultContentType.
func WithContentType(ct string) Option {
	return func(s *Service) {
		if ct != "" {
			s.contentType = ct
		}
	}
}

// NewService creates a new blog service.
func NewService(store ContentStore, idx index.PostIndex, opts ...Option) *Service {
	s := &Service{
		store:       store,
		idx:         idx,
		contentType: DefaultContentType,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPosts returns indexed posts newest first with an optional tag filter.
func (s *Service) ListPosts(_ context.Context, limit, offset int, tag string) ([]PostSummary, int, error) {
	rows, total, err := s.idx.ListPosts(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostSummary, len(rows))
	for i, r := range rows {
		items[i] = summary(r)
	}
	return items, total, nil
}

// GetPost returns the post with slug. A post missing from the index is
// looked up in the delivery API and indexed on the way out.
func (s *Service) GetPost(ctx context.Context, slug string) (*Post, error) {
	row, body, err := s.idx.GetPost(slug)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row, body, err = s.fetchPost(ctx, slug)
		if err != nil {
			return nil, err
		}
	}
	bl, err := s.idx.Backlinks(slug)
	if err != nil {
		return nil, err
	}
	return &Post{
		ID:         row.ID,
		Slug:       row.Slug,
		Title:      row.Title,
		Excerpt:    row.Excerpt,
		CoverImage: row.CoverImage,
		Tags:       nonNilSlice(row.Tags),
		Content:    body,
		Backlinks:  nonNilSlice(bl),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (s *Service) fetchPost(ctx context.Context, slug string) (*index.PostRow, string, error) {
	page, err := s.store.DeliveryEntries(ctx, cms.DeliveryQuery{
		ContentType: s.contentType,
		FieldEquals: map[string]string{FieldSlug: slug},
		Limit:       1,
		Include:     2,
	})
	if err != nil {
		return nil, "", err
	}
	if len(page.Items) == 0 {
		return nil, "", apperr.ErrNotFound
	}
	row, body, err := postFromDelivery(page.Items[0], assetIndex(page.Includes.Asset))
	if err != nil {
		return nil, "", err
	}
	if err := s.idx.UpsertPost(row, body, Links(body)); err != nil {
		s.logger.Warn("failed to index fetched post",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
	}
	return &row, body, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("query is required")
	}
	return s.idx.Search(query, limit)
}

// SyncStats summarises one Sync run.
type SyncStats struct {
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Skipped   int `json:"skipped"`
}

// Sync mirrors every published post into the index. Posts whose checksum is
// unchanged are skipped and posts no longer published are removed.
func (s *Service) Sync(ctx context.Context) (SyncStats, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	var stats SyncStats
	page, err := s.store.AllDeliveryEntries(ctx, cms.DeliveryQuery{ContentType: s.contentType, Include: 2})
	if err != nil {
		return stats, err
	}
	existing, err := s.idx.AllChecksums()
	if err != nil {
		return stats, err
	}

	assets := assetIndex(page.Includes.Asset)
	seen := make(map[string]struct{}, len(page.Items))
	for _, e := range page.Items {
		row, body, err := postFromDelivery(e, assets)
		if err != nil || row.Slug == "" {
			stats.Skipped++
			attrs := []any{slog.String("id", e.Sys.ID)}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			s.logger.Warn("sync: skipping entry", attrs...)
			continue
		}
		seen[row.ID] = struct{}{}
		if existing[row.ID] == row.Checksum {
			stats.Unchanged++
			continue
		}
		if err := s.idx.UpsertPost(row, body, Links(body)); err != nil {
			return stats, err
		}
		stats.Indexed++
	}

	for id := range existing {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := s.idx.DeletePost(id); err != nil {
			return stats, err
		}
		stats.Removed++
	}

	if n, err := s.idx.Count(); err == nil && s.recorder != nil {
		s.recorder.PostsIndexed(n)
	}
	if s.events != nil && stats.Indexed+stats.Removed > 0 {
		s.events.PublishEntryEvent("", "", "")
	}

	s.logger.Info("sync complete",
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("removed", stats.Removed),
		slog.Int("skipped", stats.Skipped))
	return stats, nil
}
