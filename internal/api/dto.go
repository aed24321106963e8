package api

import (
	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/blog"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/feedback"
	"github.com/DominiquePaul/thisiscrispin/internal/index"
)

// LoginRequest is the request body for POST /api/auth.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by the login and logout endpoints.
type AuthResponse struct {
	Success bool   `json:"success" validate:"required"`
	Message string `json:"message" example:"Authentication successful" validate:"required"`
}

// SessionResponse reports whether the caller holds an admin session.
type SessionResponse struct {
	Authenticated bool `json:"authenticated" validate:"required"`
}

// Post is the full post response type (aliased from the domain layer).
type Post = blog.Post

// PostSummary is a lightweight item in a list response.
type PostSummary = blog.PostSummary

// PostListResponse wraps paginated post listings.
type PostListResponse struct {
	Posts []PostSummary `json:"posts" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// SavePostRequest is the editor draft written by PUT /api/posts/{id}. Tags
// are tag ids; CoverImage is an asset id.
type SavePostRequest struct {
	Title      string   `json:"title" example:"Hello" validate:"required"`
	Content    string   `json:"content" example:"# Hello\nWorld"`
	Tags       []string `json:"tags" example:"golang,notes"`
	CoverImage string   `json:"coverImage,omitempty" example:"5KsDBWseXY6QegucYAoacS"`
	Excerpt    string   `json:"excerpt,omitempty"`
}

// FeedbackRequest is an anonymous feedback message. Message is checked for
// type by the handler so a non-string is reported like a missing one.
type FeedbackRequest struct {
	Message any `json:"message" swaggertype:"string" example:"Loved the post on debouncing"`
}

// FeedbackResponse reports how feedback was delivered.
type FeedbackResponse feedback.Receipt

// SuccessResponse acknowledges a write with no payload.
type SuccessResponse struct {
	Success bool `json:"success" validate:"required"`
}

// EntryResponse wraps a CMS entry.
type EntryResponse struct {
	Entry cms.Entry `json:"entry" validate:"required"`
}

// CreateEntryRequest is the request body for POST /api/contentful/entry.
// Title may be given directly or as a localized field.
type CreateEntryRequest struct {
	Title       string                       `json:"title,omitempty" example:"Hello"`
	Fields      map[string]map[string]string `json:"fields,omitempty"`
	ContentType string                       `json:"contentType,omitempty" example:"markdownrtc"`
}

// title returns the explicit title or the first localized title value.
func (r CreateEntryRequest) title(locale string) string {
	if r.Title != "" {
		return r.Title
	}
	loc := r.Fields[blog.FieldTitle]
	if v, ok := loc[locale]; ok {
		return v
	}
	for _, v := range loc {
		return v
	}
	return ""
}

// UpdateEntryRequest is the request body for PUT /api/contentful/entry.
type UpdateEntryRequest struct {
	EntryID string         `json:"entryId" validate:"required"`
	Fields  map[string]any `json:"fields" validate:"required"`
}

// TagDTO is a tag as returned by the tags endpoints.
type TagDTO struct {
	ID   string  `json:"id" example:"golang" validate:"required"`
	Name string  `json:"name" example:"Golang" validate:"required"`
	Sys  cms.Sys `json:"sys"`
}

func tagDTO(t cms.Tag) TagDTO {
	return TagDTO{ID: t.Sys.ID, Name: t.Name, Sys: t.Sys}
}

// TagListResponse wraps the tag list.
type TagListResponse struct {
	Tags []TagDTO `json:"tags" validate:"required"`
}

// CreateTagRequest is the request body for POST /api/contentful/tags.
type CreateTagRequest struct {
	Name string `json:"name" example:"Golang" validate:"required"`
}

// TagResponse wraps a created tag.
type TagResponse struct {
	Tag TagDTO `json:"tag" validate:"required"`
}

// UpdateTagsRequest is the request body for PUT /api/contentful/tags.
type UpdateTagsRequest struct {
	EntryID string   `json:"entryId" validate:"required"`
	TagIDs  []string `json:"tagIds"`
}

// ContentTypeField describes one field of a content type.
type ContentTypeField struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ContentTypeDTO is a simplified content type schema.
type ContentTypeDTO struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	DisplayField string             `json:"displayField"`
	Fields       []ContentTypeField `json:"fields"`
}

// ContentTypesResponse wraps the content type list.
type ContentTypesResponse struct {
	ContentTypes []ContentTypeDTO `json:"contentTypes" validate:"required"`
}

// AssetDTO is the asset shape returned by the upload and status endpoints.
type AssetDTO struct {
	ID      string        `json:"id" example:"5KsDBWseXY6QegucYAoacS"`
	URL     string        `json:"url" example:"https://images.ctfassets.net/space/5Ks/photo.png"`
	Width   int           `json:"width" example:"1200"`
	Height  int           `json:"height" example:"800"`
	Status  assets.Status `json:"status" example:"published"`
	Warning string        `json:"warning,omitempty"`
}

func assetDTO(r assets.Record) AssetDTO {
	return AssetDTO{ID: r.ID, URL: r.URL, Width: r.Width, Height: r.Height, Status: r.Status, Warning: r.Warning}
}

// AssetResponse wraps an asset result.
type AssetResponse struct {
	Success bool     `json:"success" validate:"required"`
	Asset   AssetDTO `json:"asset" validate:"required"`
}
