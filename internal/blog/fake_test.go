package blog

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
)

type fakeStore struct {
	mu sync.Mutex

	entries    map[string]cms.Entry
	delivery   []cms.DeliveryEntry
	assets     []cms.DeliveryAsset
	tags       []cms.Tag
	publishErr error
	mergeErr   error
	tagsErr    error

	published     []string
	deliveryCalls int
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]cms.Entry{}}
}

func (f *fakeStore) Locale() string { return "en-US" }

func (f *fakeStore) GetEntry(_ context.Context, id string) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return cms.Entry{}, apperr.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) CreateEntry(_ context.Context, contentType string, fields cms.Fields) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "new" + string(rune('0'+f.nextID))
	e := cms.Entry{
		Sys:    cms.Sys{ID: id, Version: 1, ContentType: &cms.Link{Sys: cms.Sys{ID: contentType}}},
		Fields: fields,
	}
	f.entries[id] = e
	return e, nil
}

func (f *fakeStore) MergeEntryFields(_ context.Context, id string, values map[string]any) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return cms.Entry{}, f.mergeErr
	}
	e, ok := f.entries[id]
	if !ok {
		return cms.Entry{}, apperr.ErrNotFound
	}
	e.Fields = e.Fields.Merge(cms.Localize(values, "en-US"))
	e.Sys.Version++
	f.entries[id] = e
	return e, nil
}

func (f *fakeStore) PublishEntry(_ context.Context, id string, version int) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return cms.Entry{}, f.publishErr
	}
	e := f.entries[id]
	if e.Sys.Version != version {
		return cms.Entry{}, apperr.ErrConflict
	}
	e.Sys.Version++
	e.Sys.PublishedVersion = version
	f.entries[id] = e
	f.published = append(f.published, id)
	return e, nil
}

func (f *fakeStore) FindEntries(_ context.Context, q cms.EntryQuery) (cms.Collection[cms.Entry], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var col cms.Collection[cms.Entry]
	for _, e := range f.entries {
		match := true
		for k, v := range q.FieldEquals {
			if e.String(k, "en-US") != v {
				match = false
			}
		}
		if match {
			col.Items = append(col.Items, e)
		}
	}
	col.Total = len(col.Items)
	return col, nil
}

func (f *fakeStore) UpdateEntryTags(_ context.Context, id string, tagIDs []string) (cms.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagsErr != nil {
		return cms.Entry{}, f.tagsErr
	}
	e, ok := f.entries[id]
	if !ok {
		return cms.Entry{}, apperr.ErrNotFound
	}
	e.Metadata.Tags = nil
	for _, t := range tagIDs {
		e.Metadata.Tags = append(e.Metadata.Tags, cms.NewLink("Tag", t))
	}
	e.Sys.Version++
	f.entries[id] = e
	return e, nil
}

func (f *fakeStore) ListTags(context.Context) ([]cms.Tag, error) { return f.tags, nil }

func (f *fakeStore) CreateTag(_ context.Context, id, name string) (cms.Tag, error) {
	t := cms.Tag{Sys: cms.Sys{ID: id}, Name: name}
	f.tags = append(f.tags, t)
	return t, nil
}

func (f *fakeStore) ListContentTypes(context.Context) ([]cms.ContentType, error) {
	return []cms.ContentType{{Sys: cms.Sys{ID: DefaultContentType}, Name: "Post"}}, nil
}

func (f *fakeStore) DeliveryEntries(_ context.Context, q cms.DeliveryQuery) (cms.DeliveryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveryCalls++
	var page cms.DeliveryPage
	for _, e := range f.delivery {
		if slug, ok := q.FieldEquals[FieldSlug]; ok && e.String(FieldSlug) != slug {
			continue
		}
		page.Items = append(page.Items, e)
	}
	page.Total = len(page.Items)
	page.Includes.Asset = f.assets
	return page, nil
}

func (f *fakeStore) AllDeliveryEntries(ctx context.Context, q cms.DeliveryQuery) (cms.DeliveryPage, error) {
	return f.DeliveryEntries(ctx, q)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *fakeEvents) PublishEntryEvent(kind, id, slug string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, kind+":"+id+":"+slug)
}

type postsGauge struct{ n int }

func (g *postsGauge) PostsIndexed(n int) { g.n = n }

func deliveryEntry(id, slug, created string, fields map[string]any, tags ...string) cms.DeliveryEntry {
	raw := map[string]json.RawMessage{}
	fields[FieldSlug] = slug
	for k, v := range fields {
		b, _ := json.Marshal(v)
		raw[k] = b
	}
	e := cms.DeliveryEntry{Sys: cms.Sys{ID: id, CreatedAt: created, UpdatedAt: created}, Fields: raw}
	for _, t := range tags {
		e.Metadata.Tags = append(e.Metadata.Tags, cms.NewLink("Tag", t))
	}
	return e
}
