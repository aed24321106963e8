package blog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/editor"
	"github.com/DominiquePaul/thisiscrispin/internal/sse"
)

var _ editor.Persister = (*Service)(nil)

// GetEntry returns the management view of an entry.
func (s *Service) GetEntry(ctx context.Context, id string) (cms.Entry, error) {
	if id == "" {
		return cms.Entry{}, apperr.Validation("entry id is required")
	}
	return s.store.GetEntry(ctx, id)
}

// CreatePost creates and publishes a post seeded from title. A post with the
// same slug is rejected with ErrAlreadyExists.
func (s *Service) CreatePost(ctx context.Context, title string) (cms.Entry, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return cms.Entry{}, apperr.Validation("title is required")
	}
	slug := Slugify(title)
	if slug == "" {
		return cms.Entry{}, apperr.Validation("title %q does not produce a slug", title)
	}

	found, err := s.store.FindEntries(ctx, cms.EntryQuery{
		ContentType: s.contentType,
		FieldEquals: map[string]string{FieldSlug: slug},
		Limit:       1,
	})
	if err != nil {
		return cms.Entry{}, err
	}
	if found.Total > 0 || len(found.Items) > 0 {
		return cms.Entry{}, apperr.ErrAlreadyExists
	}

	fields := cms.Localize(map[string]any{
		FieldTitle:       title,
		FieldSlug:        slug,
		FieldMainContent: SeedContent(title),
		FieldExcerpt:     title,
	}, s.store.Locale())
	created, err := s.store.CreateEntry(ctx, s.contentType, fields)
	if err != nil {
		return cms.Entry{}, err
	}
	entry := s.publish(ctx, created)
	s.notify(sse.EntryCreated, entry)
	return entry, nil
}

// UpdateFields merges values into the entry's fields and publishes it. A
// failed publish is logged and the updated draft is returned.
func (s *Service) UpdateFields(ctx context.Context, id string, values map[string]any) (cms.Entry, error) {
	if id == "" {
		return cms.Entry{}, apperr.Validation("entry id is required")
	}
	if len(values) == 0 {
		return cms.Entry{}, apperr.Validation("no fields to update")
	}
	if t, ok := values[FieldTitle]; ok {
		if str, _ := t.(string); strings.TrimSpace(str) == "" {
			return cms.Entry{}, apperr.Validation("title is required")
		}
	}
	updated, err := s.store.MergeEntryFields(ctx, id, values)
	if err != nil {
		return cms.Entry{}, err
	}
	entry := s.publish(ctx, updated)
	s.notify(sse.EntryUpdated, entry)
	return entry, nil
}

// UpdateTags replaces the entry's tags and publishes it.
func (s *Service) UpdateTags(ctx context.Context, id string, tagIDs []string) (cms.Entry, error) {
	if id == "" {
		return cms.Entry{}, apperr.Validation("entry id is required")
	}
	updated, err := s.store.UpdateEntryTags(ctx, id, nonNilSlice(tagIDs))
	if err != nil {
		return cms.Entry{}, err
	}
	entry := s.publish(ctx, updated)
	s.notify(sse.EntryUpdated, entry)
	return entry, nil
}

// ListTags returns every tag of the environment.
func (s *Service) ListTags(ctx context.Context) ([]cms.Tag, error) {
	return s.store.ListTags(ctx)
}

// CreateTag creates a tag whose id is derived from name.
func (s *Service) CreateTag(ctx context.Context, name string) (cms.Tag, error) {
	name = strings.TrimSpace(name)
	id := TagID(name)
	if id == "" {
		return cms.Tag{}, apperr.Validation("tag name %q has no letters or digits", name)
	}
	return s.store.CreateTag(ctx, id, name)
}

// ListContentTypes returns the CMS content type schemas.
func (s *Service) ListContentTypes(ctx context.Context) ([]cms.ContentType, error) {
	return s.store.ListContentTypes(ctx)
}

// SaveContent writes the editable fields of d. The draft is the whole post,
// so an empty excerpt clears the stored one. CoverImage, when set, is an
// asset id.
func (s *Service) SaveContent(ctx context.Context, entryID string, d editor.Draft) error {
	values := map[string]any{
		FieldTitle:       d.Title,
		FieldMainContent: d.Content,
		FieldExcerpt:     d.Excerpt,
	}
	if d.CoverImage != "" {
		values[FieldCoverImage] = cms.NewLink("Asset", d.CoverImage)
	}
	_, err := s.UpdateFields(ctx, entryID, values)
	return err
}

// SaveTags writes the tag ids of a draft.
func (s *Service) SaveTags(ctx context.Context, entryID string, tagIDs []string) error {
	_, err := s.UpdateTags(ctx, entryID, tagIDs)
	return err
}

func (s *Service) publish(ctx context.Context, e cms.Entry) cms.Entry {
	published, err := s.store.PublishEntry(ctx, e.Sys.ID, e.Sys.Version)
	if err != nil {
		s.logger.Warn("failed to publish entry",
			slog.String("id", e.Sys.ID),
			slog.Int("version", e.Sys.Version),
			slog.String("error", err.Error()))
		return e
	}
	return published
}

func (s *Service) notify(kind string, e cms.Entry) {
	if s.events == nil {
		return
	}
	s.events.PublishEntryEvent(kind, e.Sys.ID, e.String(FieldSlug, s.store.Locale()))
}
