// Package editor drives an in-browser post editing session: edit mode with
// cancel, debounced content changes, image drops through the asset pipeline
// and a two-part save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/assets"
)

// State is the session mode.
type State int

const (
	Viewing State = iota
	Editing
	Saving
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidState is returned when an operation does not fit the current
// mode.
var ErrInvalidState = errors.New("editor: invalid state")

// File is an image dropped into the editor.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageUploader turns a dropped file into a hosted asset.
type ImageUploader interface {
	Upload(ctx context.Context, f File) (assets.Record, error)
}

// PipelineUploader adapts an ingestion pipeline to ImageUploader.
type PipelineUploader struct {
	Pipeline *assets.Pipeline
}

// Upload implements ImageUploader.
func (u PipelineUploader) Upload(ctx context.Context, f File) (assets.Record, error) {
	return u.Pipeline.Ingest(ctx, assets.Upload{Data: f.Data, Filename: f.Name, ContentType: f.ContentType})
}

// Session is one editing session for a post.
type Session struct {
	mu        sync.Mutex
	entryID   string
	state     State
	draft     Draft
	snapshot  Draft
	uploader  ImageUploader
	persister Persister
	html      *HTMLConverter
	debouncer *Debouncer
	onContent func(string)
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	delay     time.Duration
	after     AfterFunc
	onContent func(string)
}

// WithDebounce sets the content debounce delay.
func WithDebounce(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.delay = d }
}

// WithAfterFunc replaces the timer source used for debouncing.
func WithAfterFunc(f AfterFunc) SessionOption {
	return func(c *sessionConfig) { c.after = f }
}

// WithContentListener is called with each debounced content value.
func WithContentListener(f func(string)) SessionOption {
	return func(c *sessionConfig) { c.onContent = f }
}

// NewSession starts in Viewing with initial as the committed draft.
func NewSession(entryID string, initial Draft, uploader ImageUploader, persister Persister, opts ...SessionOption) *Session {
	cfg := sessionConfig{delay: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		entryID:   entryID,
		state:     Viewing,
		draft:     initial.clone(),
		snapshot:  initial.clone(),
		uploader:  uploader,
		persister: persister,
		html:      NewHTMLConverter(),
		onContent: cfg.onContent,
	}
	s.debouncer = NewDebouncer(cfg.delay, cfg.after, s.applyContent)
	return s
}

// State returns the current mode.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns a copy of the current draft. Content still inside the
// debounce window is not included.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone()
}

// Edit enters Editing and snapshots the draft for Cancel.
func (s *Session) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Viewing {
		return fmt.Errorf("%w: edit from %s", ErrInvalidState, s.state)
	}
	s.snapshot = s.draft.clone()
	s.state = Editing
	return nil
}

// Cancel discards uncommitted edits, restores the snapshot and returns to
// Viewing.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidState, s.state)
	}
	s.debouncer.Cancel()
	s.draft = s.snapshot.clone()
	s.state = Viewing
	return nil
}

// Close leaves Editing keeping the current draft.
func (s *Session) Close() error {
	s.debouncer.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return fmt.Errorf("%w: close from %s", ErrInvalidState, s.state)
	}
	s.state = Viewing
	return nil
}

// Update applies fn to the draft fields other than content.
func (s *Session) Update(fn func(d *Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return fmt.Errorf("%w: update from %s", ErrInvalidState, s.state)
	}
	content := s.draft.Content
	fn(&s.draft)
	s.draft.Content = content
	return nil
}

// OnContentChanged queues newContent behind the debounce delay.
func (s *Session) OnContentChanged(newContent string) error {
	if st := s.State(); st != Editing {
		return fmt.Errorf("%w: content change from %s", ErrInvalidState, st)
	}
	s.debouncer.Push(newContent)
	return nil
}

// ApplyHTML converts editor HTML to markdown and queues it as content.
func (s *Session) ApplyHTML(src string) error {
	out, err := s.html.Convert(src)
	if err != nil {
		return apperr.Validation("unreadable editor html: %v", err)
	}
	return s.OnContentChanged(out)
}

// OnImageDropped uploads f and appends an image reference to the latest
// content. A failed upload inserts nothing.
func (s *Session) OnImageDropped(ctx context.Context, f File) (assets.Record, error) {
	if st := s.State(); st != Editing {
		return assets.Record{}, fmt.Errorf("%w: image drop from %s", ErrInvalidState, st)
	}
	if ct := strings.Split(f.ContentType, ";")[0]; ct != "" && !strings.HasPrefix(ct, "image/") {
		return assets.Record{}, apperr.Validation("only image files can be inserted, got %s", ct)
	}
	rec, err := s.uploader.Upload(ctx, f)
	if err != nil {
		return assets.Record{}, err
	}
	if rec.URL == "" {
		return rec, fmt.Errorf("editor: upload of %s returned no url", f.Name)
	}

	latest, ok := s.debouncer.Take()
	s.mu.Lock()
	if !ok {
		latest = s.draft.Content
	}
	s.mu.Unlock()
	s.applyContent(latest + ImageMarkdown(assets.AltText(f.Name), rec.URL))
	return rec, nil
}

// Save flushes pending content and persists the draft. It returns to Editing
// whatever the outcome. The snapshot moves to what was actually written, so a
// later Cancel keeps a partially saved state.
func (s *Session) Save(ctx context.Context) error {
	s.debouncer.Flush()

	s.mu.Lock()
	if s.state != Editing {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: save from %s", ErrInvalidState, st)
	}
	s.state = Saving
	d := s.draft.clone()
	s.mu.Unlock()

	err := Save(ctx, s.persister, s.entryID, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Editing
	var se *SaveError
	switch {
	case err == nil:
		s.snapshot = d
	case errors.As(err, &se) && se.Part == PartTags:
		tags := s.snapshot.Tags
		s.snapshot = d
		s.snapshot.Tags = tags
	}
	return err
}

// applyContent is the debounced delivery target. Values arriving outside
// Editing belong to a cancelled edit and are ignored.
func (s *Session) applyContent(v string) {
	s.mu.Lock()
	if s.state != Editing {
		s.mu.Unlock()
		return
	}
	s.draft.Content = v
	listener := s.onContent
	s.mu.Unlock()
	if listener != nil {
		listener(v)
	}
}

// ImageMarkdown is the snippet appended for an inserted image.
func ImageMarkdown(alt, url string) string {
	return fmt.Sprintf("\n\n![%s](%s)\n", alt, url)
}
