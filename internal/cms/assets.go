package cms

import (
	"bytes"
	"context"
	"net/http"
)

// CreateUpload sends raw bytes to the upload API and returns the upload id.
func (c *Client) CreateUpload(ctx context.Context, data []byte) (string, error) {
	r := request{
		op:          "create_upload",
		method:      http.MethodPost,
		url:         c.envPath(c.cfg.UploadURL, "uploads"),
		token:       c.cfg.ManagementToken,
		contentType: "application/octet-stream",
		body:        bytes.NewReader(data),
	}
	var out struct {
		Sys Sys `json:"sys"`
	}
	if err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	return out.Sys.ID, nil
}

// NewAsset describes an asset to create from an upload.
type NewAsset struct {
	UploadID    string
	FileName    string
	ContentType string
	Title       string
	Description string
}

// CreateAsset creates an unprocessed asset pointing at an upload.
func (c *Client) CreateAsset(ctx context.Context, in NewAsset) (Asset, error) {
	loc := c.cfg.Locale
	link := NewLink("Upload", in.UploadID)
	body := Asset{Fields: AssetFields{
		Title:       map[string]string{loc: in.Title},
		Description: map[string]string{loc: in.Description},
		File: map[string]AssetFile{loc: {
			FileName:    in.FileName,
			ContentType: in.ContentType,
			UploadFrom:  &link,
		}},
	}}
	r, err := c.jsonRequest("create_asset", http.MethodPost, c.management("assets"), 0, body)
	if err != nil {
		return Asset{}, err
	}
	var a Asset
	err = c.do(ctx, r, &a)
	return a, err
}

// ProcessAsset asks the CMS to process the file of the client locale.
// Processing is asynchronous; poll GetAsset for the URL.
func (c *Client) ProcessAsset(ctx context.Context, id string, version int) error {
	r, _ := c.jsonRequest("process_asset", http.MethodPut,
		c.management("assets", id, "files", c.cfg.Locale, "process"), version, nil)
	return c.do(ctx, r, nil)
}

// GetAsset fetches an asset.
func (c *Client) GetAsset(ctx context.Context, id string) (Asset, error) {
	r, _ := c.jsonRequest("get_asset", http.MethodGet, c.management("assets", id), 0, nil)
	var a Asset
	err := c.do(ctx, r, &a)
	return a, err
}

// PublishAsset publishes the given version of an asset.
func (c *Client) PublishAsset(ctx context.Context, id string, version int) (Asset, error) {
	r, _ := c.jsonRequest("publish_asset", http.MethodPut, c.management("assets", id, "published"), version, nil)
	var a Asset
	err := c.do(ctx, r, &a)
	return a, err
}
