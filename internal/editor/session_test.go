package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/assets"
)

type fakePersister struct {
	contentErr error
	tagsErr    error
	content    []Draft
	tags       [][]string
}

func (p *fakePersister) SaveContent(_ context.Context, _ string, d Draft) error {
	if p.contentErr != nil {
		return p.contentErr
	}
	p.content = append(p.content, d)
	return nil
}

func (p *fakePersister) SaveTags(_ context.Context, _ string, tags []string) error {
	if p.tagsErr != nil {
		return p.tagsErr
	}
	p.tags = append(p.tags, tags)
	return nil
}

type fakeUploader struct {
	rec assets.Record
	err error
	got []File
}

func (u *fakeUploader) Upload(_ context.Context, f File) (assets.Record, error) {
	u.got = append(u.got, f)
	return u.rec, u.err
}

var initial = Draft{Title: "Hello", Content: "# Hello\n\nbody", Tags: []string{"go"}, CoverImage: "https://img/c.png", Excerpt: "Hello"}

func newTestSession(t *testing.T, up ImageUploader, p Persister) (*Session, *manualTimers) {
	t.Helper()
	timers := &manualTimers{}
	s := NewSession("entry1", initial, up, p, WithAfterFunc(timers.AfterFunc))
	return s, timers
}

func TestSession_CancelRestoresSnapshot(t *testing.T) {
	s, timers := newTestSession(t, &fakeUploader{}, &fakePersister{})
	require.Equal(t, Viewing, s.State())
	require.NoError(t, s.Edit())
	require.Equal(t, Editing, s.State())

	require.NoError(t, s.Update(func(d *Draft) {
		d.Title = "Changed"
		d.Tags = append(d.Tags, "life")
		d.Excerpt = "x"
		d.CoverImage = ""
	}))
	require.NoError(t, s.OnContentChanged("new body"))
	timers.FireAll()
	require.Equal(t, "new body", s.Draft().Content)

	require.NoError(t, s.Cancel())
	require.Equal(t, Viewing, s.State())
	require.Equal(t, initial, s.Draft())
}

func TestSession_CancelDropsPendingContent(t *testing.T) {
	s, timers := newTestSession(t, &fakeUploader{}, &fakePersister{})
	require.NoError(t, s.Edit())
	require.NoError(t, s.OnContentChanged("typing"))
	require.NoError(t, s.Cancel())
	timers.FireAll()
	require.Equal(t, initial.Content, s.Draft().Content)
}

func TestSession_SaveFlushesLatestEdit(t *testing.T) {
	p := &fakePersister{}
	var delivered []string
	timers := &manualTimers{}
	s := NewSession("entry1", initial, &fakeUploader{}, p,
		WithAfterFunc(timers.AfterFunc),
		WithContentListener(func(v string) { delivered = append(delivered, v) }))
	require.NoError(t, s.Edit())

	for _, v := range []string{"a", "ab", "abc"} {
		require.NoError(t, s.OnContentChanged(v))
	}
	require.NoError(t, s.Save(context.Background()))

	require.Len(t, p.content, 1)
	require.Equal(t, "abc", p.content[0].Content)
	require.Equal(t, [][]string{{"go"}}, p.tags)
	require.Equal(t, []string{"abc"}, delivered)
	require.Equal(t, Editing, s.State())

	// Cancel after a save keeps what was saved.
	require.NoError(t, s.Cancel())
	require.Equal(t, "abc", s.Draft().Content)
}

func TestSession_SaveReportsFailedPart(t *testing.T) {
	t.Run("content", func(t *testing.T) {
		p := &fakePersister{contentErr: apperr.ErrConflict}
		s, _ := newTestSession(t, &fakeUploader{}, p)
		require.NoError(t, s.Edit())

		err := s.Save(context.Background())
		var se *SaveError
		require.True(t, errors.As(err, &se))
		require.Equal(t, PartContent, se.Part)
		require.ErrorIs(t, err, apperr.ErrConflict)
		require.Empty(t, p.tags)
		require.Equal(t, Editing, s.State())
	})
	t.Run("tags", func(t *testing.T) {
		p := &fakePersister{tagsErr: errors.New("boom")}
		s, _ := newTestSession(t, &fakeUploader{}, p)
		require.NoError(t, s.Edit())
		require.NoError(t, s.Update(func(d *Draft) {
			d.Title = "Saved title"
			d.Tags = []string{"new"}
		}))

		err := s.Save(context.Background())
		var se *SaveError
		require.True(t, errors.As(err, &se))
		require.Equal(t, PartTags, se.Part)
		require.Len(t, p.content, 1)
		require.Contains(t, err.Error(), "failed to update tags")

		require.NoError(t, s.Cancel())
		got := s.Draft()
		require.Equal(t, "Saved title", got.Title)
		require.Equal(t, []string{"go"}, got.Tags)
	})
}

func TestSession_SaveRequiresTitle(t *testing.T) {
	p := &fakePersister{}
	s, _ := newTestSession(t, &fakeUploader{}, p)
	require.NoError(t, s.Edit())
	require.NoError(t, s.Update(func(d *Draft) { d.Title = "  " }))

	err := s.Save(context.Background())
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Empty(t, p.content)
}

func TestSession_ImageDropAppendsMarkdown(t *testing.T) {
	up := &fakeUploader{rec: assets.Record{ID: "a1", URL: "https://images.example/a1.png", Status: assets.StatusPublished}}
	s, _ := newTestSession(t, up, &fakePersister{})
	require.NoError(t, s.Edit())
	require.NoError(t, s.OnContentChanged("draft text"))

	rec, err := s.OnImageDropped(context.Background(), File{Name: "sunset.jpg", ContentType: "image/jpeg", Data: []byte{1}})
	require.NoError(t, err)
	require.Equal(t, "a1", rec.ID)
	require.Equal(t, "draft text\n\n![sunset](https://images.example/a1.png)\n", s.Draft().Content)
}

func TestSession_ImageDropPlaceholderStillInserted(t *testing.T) {
	ph := assets.Placeholder("a1")
	up := &fakeUploader{rec: assets.Record{ID: "a1", URL: ph, Status: assets.StatusProcessingFailed}}
	s, _ := newTestSession(t, up, &fakePersister{})
	require.NoError(t, s.Edit())

	_, err := s.OnImageDropped(context.Background(), File{Name: "", ContentType: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	require.Equal(t, initial.Content+"\n\n![image]("+ph+")\n", s.Draft().Content)
}

func TestSession_ImageDropFailures(t *testing.T) {
	up := &fakeUploader{err: assets.ErrUploadFailed}
	s, _ := newTestSession(t, up, &fakePersister{})

	_, err := s.OnImageDropped(context.Background(), File{Name: "a.png", ContentType: "image/png"})
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, s.Edit())
	_, err = s.OnImageDropped(context.Background(), File{Name: "a.txt", ContentType: "text/plain"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Empty(t, up.got)

	_, err = s.OnImageDropped(context.Background(), File{Name: "a.png", ContentType: "image/png"})
	require.ErrorIs(t, err, assets.ErrUploadFailed)
	require.Equal(t, initial.Content, s.Draft().Content)
}

func TestSession_InvalidTransitions(t *testing.T) {
	s, _ := newTestSession(t, &fakeUploader{}, &fakePersister{})
	require.ErrorIs(t, s.Cancel(), ErrInvalidState)
	require.ErrorIs(t, s.Save(context.Background()), ErrInvalidState)
	require.ErrorIs(t, s.OnContentChanged("x"), ErrInvalidState)
	require.ErrorIs(t, s.Update(func(*Draft) {}), ErrInvalidState)
	require.NoError(t, s.Edit())
	require.ErrorIs(t, s.Edit(), ErrInvalidState)
	require.NoError(t, s.Close())
	require.Equal(t, Viewing, s.State())
}

func TestSession_ApplyHTML(t *testing.T) {
	s, timers := newTestSession(t, &fakeUploader{}, &fakePersister{})
	require.NoError(t, s.Edit())
	require.NoError(t, s.ApplyHTML(`<h2>Title</h2><p>Body <strong>bold</strong></p><button>Save</button><script>alert(1)</script>`))
	timers.FireAll()
	require.Equal(t, "## Title\n\nBody **bold**", s.Draft().Content)
}

func TestSave_Standalone(t *testing.T) {
	p := &fakePersister{}
	require.NoError(t, Save(context.Background(), p, "e", Draft{Title: "T", Tags: []string{"a"}}))
	require.Equal(t, [][]string{{"a"}}, p.tags)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "saving", Saving.String())
	require.Equal(t, "State(9)", State(9).String())
}
