package editor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
)

// Part names the half of a save that failed.
type Part string

const (
	PartContent Part = "content"
	PartTags    Part = "tags"
)

// SaveError reports which remote update of a save failed. Parts that
// succeeded before it are not rolled back.
type SaveError struct {
	Part Part
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to update %s: %v", e.Part, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Draft is the editable state of a post.
type Draft struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	CoverImage string   `json:"coverImage,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
}

func (d Draft) clone() Draft {
	d.Tags = slices.Clone(d.Tags)
	return d
}

// Persister writes the two halves of a draft to the CMS.
type Persister interface {
	SaveContent(ctx context.Context, entryID string, d Draft) error
	SaveTags(ctx context.Context, entryID string, tagIDs []string) error
}

// Save writes content fields and then tags. A missing title is a validation
// error and nothing is written.
func Save(ctx context.Context, p Persister, entryID string, d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return apperr.Validation("title is required")
	}
	if err := p.SaveContent(ctx, entryID, d); err != nil {
		return &SaveError{Part: PartContent, Err: err}
	}
	if err := p.SaveTags(ctx, entryID, d.Tags); err != nil {
		return &SaveError{Part: PartTags, Err: err}
	}
	return nil
}
