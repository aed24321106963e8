package cms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// GetEntry fetches the latest (draft) version of an entry.
func (c *Client) GetEntry(ctx context.Context, id string) (Entry, error) {
	var e Entry
	r, _ := c.jsonRequest("get_entry", http.MethodGet, c.management("entries", id), 0, nil)
	err := c.do(ctx, r, &e)
	return e, err
}

// UpdateEntry replaces the fields and metadata of an entry at the given
// version. A stale version surfaces as apperr.ErrConflict.
func (c *Client) UpdateEntry(ctx context.Context, id string, version int, fields Fields, meta Metadata) (Entry, error) {
	body := struct {
		Fields   Fields   `json:"fields"`
		Metadata Metadata `json:"metadata"`
	}{fields, meta}
	r, err := c.jsonRequest("update_entry", http.MethodPut, c.management("entries", id), version, body)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	err = c.do(ctx, r, &e)
	return e, err
}

// MergeEntryFields fetches the entry, overlays values (wrapped in the
// client locale) and writes it back at the fetched version.
func (c *Client) MergeEntryFields(ctx context.Context, id string, values map[string]any) (Entry, error) {
	cur, err := c.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return c.UpdateEntry(ctx, id, cur.Sys.Version, cur.Fields.Merge(Localize(values, c.cfg.Locale)), cur.Metadata)
}

// CreateEntry creates a draft entry of contentType.
func (c *Client) CreateEntry(ctx context.Context, contentType string, fields Fields) (Entry, error) {
	body := struct {
		Fields Fields `json:"fields"`
	}{fields}
	r, err := c.jsonRequest("create_entry", http.MethodPost, c.management("entries"), 0, body)
	if err != nil {
		return Entry{}, err
	}
	r.header = http.Header{"X-Contentful-Content-Type": {contentType}}
	var e Entry
	err = c.do(ctx, r, &e)
	return e, err
}

// PublishEntry publishes the given version of an entry.
func (c *Client) PublishEntry(ctx context.Context, id string, version int) (Entry, error) {
	r, _ := c.jsonRequest("publish_entry", http.MethodPut, c.management("entries", id, "published"), version, nil)
	var e Entry
	err := c.do(ctx, r, &e)
	return e, err
}

// EntryQuery filters FindEntries.
type EntryQuery struct {
	ContentType string
	// FieldEquals matches fields.<key>=<value>; requires ContentType.
	FieldEquals map[string]string
	Limit       int
	Skip        int
}

func (q EntryQuery) values() url.Values {
	v := url.Values{}
	if q.ContentType != "" {
		v.Set("content_type", q.ContentType)
	}
	for k, val := range q.FieldEquals {
		v.Set("fields."+k, val)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	return v
}

// FindEntries lists management entries matching q.
func (c *Client) FindEntries(ctx context.Context, q EntryQuery) (Collection[Entry], error) {
	u := c.management("entries")
	if enc := q.values().Encode(); enc != "" {
		u += "?" + enc
	}
	r, _ := c.jsonRequest("find_entries", http.MethodGet, u, 0, nil)
	var col Collection[Entry]
	err := c.do(ctx, r, &col)
	return col, err
}

// UpdateEntryTags replaces the tag links on an entry, keeping its fields.
func (c *Client) UpdateEntryTags(ctx context.Context, id string, tagIDs []string) (Entry, error) {
	cur, err := c.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	meta := Metadata{Tags: make([]Link, 0, len(tagIDs))}
	for _, t := range tagIDs {
		meta.Tags = append(meta.Tags, NewLink("Tag", t))
	}
	return c.UpdateEntry(ctx, id, cur.Sys.Version, cur.Fields, meta)
}

// ListContentTypes returns the content type schemas of the environment.
func (c *Client) ListContentTypes(ctx context.Context) ([]ContentType, error) {
	r, _ := c.jsonRequest("list_content_types", http.MethodGet, c.management("content_types"), 0, nil)
	var col Collection[ContentType]
	if err := c.do(ctx, r, &col); err != nil {
		return nil, err
	}
	return col.Items, nil
}
