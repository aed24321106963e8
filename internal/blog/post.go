package blog

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/frontmatter"
	"github.com/DominiquePaul/thisiscrispin/internal/index"
	"github.com/DominiquePaul/thisiscrispin/internal/richtext"
)

// Post is the full representation of a published post.
type Post struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	CoverImage string    `json:"cover_image"`
	Tags       []string  `json:"tags"`
	Content    string    `json:"content"`
	Backlinks  []string  `json:"backlinks"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PostSummary is a lightweight item in a list response.
type PostSummary struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	CoverImage string    `json:"cover_image"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// Entry field ids of the post content type.
const (
	FieldTitle       = "title"
	FieldSlug        = "slug"
	FieldMainContent = "mainContent"
	FieldContent     = "content"
	FieldExcerpt     = "excerpt"
	FieldCoverImage  = "coverImage"
)

var (
	slugStripRe   = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe   = regexp.MustCompile(`\s+`)
	slugHyphensRe = regexp.MustCompile(`-+`)
	postLinkRe    = regexp.MustCompile(`\]\((?:https?://[^/\s)]+)?/p/([A-Za-z0-9_-]+)`)
)

// Slugify lowercases title, drops everything but word characters, spaces and
// hyphens, and joins words with single hyphens.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugHyphensRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TagID derives a tag id from its display name: lowercase ASCII letters and
// digits only.
func TagID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, strings.ToLower(name))
}

// Links returns the deduplicated slugs of posts linked from body.
func Links(body string) []string {
	matches := postLinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// SeedContent is the Markdown body of a freshly created post.
func SeedContent(title string) string {
	return "# " + title + "\n\nStart writing here..."
}

func assetIndex(assets []cms.DeliveryAsset) richtext.AssetIndex {
	idx := make(richtext.AssetIndex, len(assets))
	for _, a := range assets {
		desc := a.Fields.Description
		if desc == "" {
			desc = a.Fields.Title
		}
		idx[a.Sys.ID] = richtext.AssetRef{ID: a.Sys.ID, URL: a.Fields.File.URL, Description: desc}
	}
	return idx
}

// postFromDelivery builds the index row and Markdown body of a published
// entry. The markdown field wins over the rich-text field when both are set.
func postFromDelivery(e cms.DeliveryEntry, assets richtext.AssetIndex) (index.PostRow, string, error) {
	body := e.String(FieldMainContent)
	if strings.TrimSpace(body) == "" {
		if raw, ok := e.Fields[FieldContent]; ok {
			doc, err := richtext.Decode(raw, richtext.WithAssets(assets))
			if err != nil {
				return index.PostRow{}, "", err
			}
			body = richtext.ToMarkdown(doc)
		}
	}

	row := index.PostRow{
		ID:         e.Sys.ID,
		Slug:       e.String(FieldSlug),
		Title:      e.String(FieldTitle),
		Excerpt:    e.String(FieldExcerpt),
		CoverImage: coverURL(e.Fields[FieldCoverImage], assets),
		Tags:       e.Metadata.TagIDs(),
		CreatedAt:  parseTime(e.Sys.CreatedAt),
		UpdatedAt:  parseTime(e.Sys.UpdatedAt),
	}
	if row.Title == "" {
		row.Title = frontmatter.Title(nil, body)
	}
	row.Checksum = checksum(row, body)
	return row, body, nil
}

// coverURL accepts either a plain URL string or an asset link.
func coverURL(raw json.RawMessage, assets richtext.AssetIndex) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return richtext.ResolveURL(s)
	}
	var link cms.Link
	if json.Unmarshal(raw, &link) != nil {
		return ""
	}
	if ref, ok := assets[link.Sys.ID]; ok {
		return richtext.ResolveURL(ref.URL)
	}
	return ""
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func checksum(row index.PostRow, body string) string {
	data, _ := json.Marshal(struct {
		Slug, Title, Excerpt, CoverImage, Body string
		Tags                                   []string
		CreatedAt                              time.Time
	}{row.Slug, row.Title, row.Excerpt, row.CoverImage, body, row.Tags, row.CreatedAt})
	return index.Checksum(data)
}

func summary(r index.PostRow) PostSummary {
	return PostSummary{
		ID:         r.ID,
		Slug:       r.Slug,
		Title:      r.Title,
		Excerpt:    r.Excerpt,
		CoverImage: r.CoverImage,
		Tags:       nonNilSlice(r.Tags),
		CreatedAt:  r.CreatedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
