package cms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// DeliveryQuery filters DeliveryEntries.
type DeliveryQuery struct {
	ContentType string
	FieldEquals map[string]string
	Order       string
	Limit       int
	Skip        int
	// Include is the link resolution depth; 0 means the API default.
	Include int
}

// DeliveryEntries lists published entries with their linked assets.
func (c *Client) DeliveryEntries(ctx context.Context, q DeliveryQuery) (DeliveryPage, error) {
	v := url.Values{}
	if q.ContentType != "" {
		v.Set("content_type", q.ContentType)
	}
	for k, val := range q.FieldEquals {
		v.Set("fields."+k, val)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Include > 0 {
		v.Set("include", strconv.Itoa(q.Include))
	}
	u := c.envPath(c.cfg.DeliveryURL, "entries")
	if enc := v.Encode(); enc != "" {
		u += "?" + enc
	}
	r := request{op: "delivery_entries", method: http.MethodGet, url: u, token: c.cfg.DeliveryToken}
	var page DeliveryPage
	err := c.do(ctx, r, &page)
	return page, err
}

// AllDeliveryEntries pages through DeliveryEntries until every item is read.
func (c *Client) AllDeliveryEntries(ctx context.Context, q DeliveryQuery) (DeliveryPage, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	var all DeliveryPage
	for {
		page, err := c.DeliveryEntries(ctx, q)
		if err != nil {
			return DeliveryPage{}, err
		}
		all.Items = append(all.Items, page.Items...)
		all.Includes.Asset = append(all.Includes.Asset, page.Includes.Asset...)
		all.Total = page.Total
		q.Skip += len(page.Items)
		if len(page.Items) == 0 || q.Skip >= page.Total {
			return all, nil
		}
	}
}
