package cms

import (
	"context"
	"net/http"
)

// ListTags returns all tags of the environment.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	r, _ := c.jsonRequest("list_tags", http.MethodGet, c.management("tags")+"?limit=1000", 0, nil)
	var col Collection[Tag]
	if err := c.do(ctx, r, &col); err != nil {
		return nil, err
	}
	return col.Items, nil
}

// CreateTag creates a public tag with an explicit id.
func (c *Client) CreateTag(ctx context.Context, id, name string) (Tag, error) {
	body := Tag{Name: name, Sys: Sys{ID: id, Type: "Tag", Visibility: "public"}}
	r, err := c.jsonRequest("create_tag", http.MethodPut, c.management("tags", id), 0, body)
	if err != nil {
		return Tag{}, err
	}
	var t Tag
	err = c.do(ctx, r, &t)
	return t, err
}
