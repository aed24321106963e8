package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
)

type fakeStore struct {
	mu sync.Mutex

	uploadErr  error
	createErr  error
	processErr error
	publishErr error
	getErr     error
	// readyAfter is the number of GetAsset calls that return no URL first.
	readyAfter int

	uploaded  []byte
	created   cms.NewAsset
	getCalls  int
	published []int
}

func (f *fakeStore) Locale() string { return "en-US" }

func (f *fakeStore) CreateUpload(_ context.Context, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = data
	return "up1", nil
}

func (f *fakeStore) CreateAsset(_ context.Context, in cms.NewAsset) (cms.Asset, error) {
	if f.createErr != nil {
		return cms.Asset{}, f.createErr
	}
	f.created = in
	return cms.Asset{Sys: cms.Sys{ID: "asset1234567", Version: 1}}, nil
}

func (f *fakeStore) ProcessAsset(context.Context, string, int) error { return f.processErr }

func (f *fakeStore) GetAsset(_ context.Context, id string) (cms.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return cms.Asset{}, f.getErr
	}
	a := cms.Asset{Sys: cms.Sys{ID: id, Version: 2}}
	if f.getCalls > f.readyAfter {
		a.Fields.File = map[string]cms.AssetFile{"en-US": {
			URL:         "//images.example/" + id + ".png",
			ContentType: "image/png",
			Details:     &cms.FileDetails{Image: &cms.ImageDetails{Width: 40, Height: 20}},
		}}
	}
	return a, nil
}

func (f *fakeStore) PublishAsset(_ context.Context, _ string, version int) (cms.Asset, error) {
	f.published = append(f.published, version)
	if f.publishErr != nil {
		return cms.Asset{}, f.publishErr
	}
	return cms.Asset{Sys: cms.Sys{Version: version + 1, PublishedVersion: version}}, nil
}

// instantTimer fires as soon as it is started.
type instantTimer struct{ c chan time.Time }

func (t *instantTimer) Start(time.Duration) {
	t.c = make(chan time.Time, 1)
	t.c <- time.Time{}
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

type recorder struct {
	statuses []string
	polls    []int
}

func (r *recorder) AssetIngested(s string) { r.statuses = append(r.statuses, s) }
func (r *recorder) PollAttempts(n int)     { r.polls = append(r.polls, n) }

var fixedNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func newTestPipeline(store Store, cfg Config, opts ...Option) *Pipeline {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
		WithTimer(func() backoff.Timer { return &instantTimer{} }),
	}
	return New(store, cfg, append(base, opts...)...)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x + y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngest_Published(t *testing.T) {
	store := &fakeStore{readyAfter: 2}
	rec := &recorder{}
	p := newTestPipeline(store, Config{}, WithRecorder(rec))
	data := pngBytes(t, 40, 20)

	got, err := p.Ingest(context.Background(), Upload{Data: data, Filename: "Sunset Beach.PNG", ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, StatusPublished, got.Status)
	require.Equal(t, "https://images.example/asset1234567.png", got.URL)
	require.Equal(t, "asset1234567", got.ID)
	require.Equal(t, 40, got.Width)
	require.Equal(t, 20, got.Height)
	require.Equal(t, []int{2}, store.published)
	require.Equal(t, 3, store.getCalls)
	require.Equal(t, []int{3}, rec.polls)
	require.Equal(t, []string{"published"}, rec.statuses)

	require.Equal(t, "Sunset Beach", store.created.Title)
	require.Equal(t, "Uploaded on 2024-03-09T10:00:00Z", store.created.Description)
	require.True(t, strings.HasPrefix(store.created.FileName, "1709978400000-"))
	require.True(t, strings.HasSuffix(store.created.FileName, ".png"))
	require.Equal(t, "up1", store.created.UploadID)
}

func TestIngest_SmallImagePassesThroughUnchanged(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, Config{})
	data := pngBytes(t, 64, 48)

	got, err := p.Ingest(context.Background(), Upload{Data: data, Filename: "a.png", ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, data, store.uploaded)
	require.Equal(t, 64, got.Width)
	require.Equal(t, 48, got.Height)
}

func TestIngest_LargeImageIsResized(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, Config{LargeFileThreshold: 1024})
	data := pngBytes(t, 3000, 2000)
	require.Greater(t, len(data), 1024)

	got, err := p.Ingest(context.Background(), Upload{Data: data, Filename: "wide.png", ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, 2000, got.Width)
	require.Equal(t, 1333, got.Height)
	require.Equal(t, "image/png", got.ContentType)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(store.uploaded))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, got.Width, cfg.Width)
	require.Equal(t, got.Height, cfg.Height)
}

func TestIngest_ProcessingFailureDegradesToPlaceholder(t *testing.T) {
	store := &fakeStore{processErr: &apperr.UpstreamError{Op: "process_asset", Status: 500, Payload: map[string]any{}}}
	p := newTestPipeline(store, Config{})

	got, err := p.Ingest(context.Background(), Upload{Data: pngBytes(t, 4, 4), Filename: "x.png"})
	require.NoError(t, err)
	require.Equal(t, StatusProcessingFailed, got.Status)
	require.True(t, strings.HasPrefix(got.URL, "data:image/svg+xml;base64,"))
	require.Equal(t, Placeholder("asset1234567"), got.URL)
	require.Empty(t, store.published)
}

func TestIngest_PublishFailureKeepsRealURL(t *testing.T) {
	store := &fakeStore{publishErr: &apperr.UpstreamError{Op: "publish_asset", Status: 403, Payload: map[string]any{}}}
	p := newTestPipeline(store, Config{})

	got, err := p.Ingest(context.Background(), Upload{Data: pngBytes(t, 4, 4), Filename: "x.png"})
	require.NoError(t, err)
	require.Equal(t, StatusProcessedUnpublished, got.Status)
	require.Equal(t, "https://images.example/asset1234567.png", got.URL)
	require.NotEmpty(t, got.Warning)
}

func TestIngest_URLNeverAppears(t *testing.T) {
	store := &fakeStore{readyAfter: 100}
	rec := &recorder{}
	p := newTestPipeline(store, Config{PollAttempts: 3}, WithRecorder(rec))

	got, err := p.Ingest(context.Background(), Upload{Data: pngBytes(t, 4, 4), Filename: "x.png"})
	require.NoError(t, err)
	require.Equal(t, StatusProcessedUnpublished, got.Status)
	require.Equal(t, Placeholder("asset1234567"), got.URL)
	require.Equal(t, 3, store.getCalls)
	require.Equal(t, []int{3}, rec.polls)
}

func TestIngest_CancelledWaitDegrades(t *testing.T) {
	store := &fakeStore{readyAfter: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(store, Config{PollAttempts: 10})

	got, err := p.Ingest(ctx, Upload{Data: pngBytes(t, 4, 4), Filename: "x.png"})
	require.NoError(t, err)
	require.Equal(t, StatusProcessedUnpublished, got.Status)
	require.Equal(t, "asset1234567", got.ID)
	require.LessOrEqual(t, store.getCalls, 1)
}

func TestIngest_FatalSteps(t *testing.T) {
	upstream := &apperr.UpstreamError{Op: "x", Status: 502, Payload: map[string]any{"message": "down"}}

	p := newTestPipeline(&fakeStore{uploadErr: upstream}, Config{})
	_, err := p.Ingest(context.Background(), Upload{Data: pngBytes(t, 4, 4), Filename: "x.png"})
	require.ErrorIs(t, err, ErrUploadFailed)
	require.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	var ue *apperr.UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, "down", ue.Payload["message"])

	p = newTestPipeline(&fakeStore{createErr: upstream}, Config{})
	_, err = p.Ingest(context.Background(), Upload{Data: pngBytes(t, 4, 4), Filename: "x.png"})
	require.ErrorIs(t, err, ErrAssetCreationFailed)
	require.NotErrorIs(t, err, ErrUploadFailed)
}

func TestIngest_Validation(t *testing.T) {
	p := newTestPipeline(&fakeStore{}, Config{MaxUploadBytes: 10})
	ctx := context.Background()

	_, err := p.Ingest(ctx, Upload{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = p.Ingest(ctx, Upload{Data: bytes.Repeat([]byte("a"), 11), Filename: "big.png"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = p.Ingest(ctx, Upload{Data: []byte("hello"), Filename: "notes.txt", ContentType: "text/plain"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIngest_TwiceCreatesTwoAssets(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, Config{})
	data := pngBytes(t, 4, 4)

	a, err := p.Ingest(context.Background(), Upload{Data: data, Filename: "x.png"})
	require.NoError(t, err)
	first := store.created.FileName
	_, err = p.Ingest(context.Background(), Upload{Data: data, Filename: "x.png"})
	require.NoError(t, err)
	require.NotEqual(t, first, store.created.FileName)
	require.Equal(t, StatusPublished, a.Status)
}

func TestRefresh(t *testing.T) {
	t.Run("processing", func(t *testing.T) {
		p := newTestPipeline(&fakeStore{readyAfter: 1}, Config{})
		got, err := p.Refresh(context.Background(), "a1")
		require.NoError(t, err)
		require.Equal(t, StatusProcessing, got.Status)
	})
	t.Run("publishes processed asset", func(t *testing.T) {
		store := &fakeStore{}
		p := newTestPipeline(store, Config{})
		got, err := p.Refresh(context.Background(), "a1")
		require.NoError(t, err)
		require.Equal(t, StatusPublished, got.Status)
		require.Equal(t, []int{2}, store.published)
		require.Equal(t, 40, got.Width)
	})
	t.Run("publish failure reported", func(t *testing.T) {
		store := &fakeStore{publishErr: errors.New("forbidden")}
		p := newTestPipeline(store, Config{})
		got, err := p.Refresh(context.Background(), "a1")
		require.NoError(t, err)
		require.Equal(t, StatusProcessedUnpublished, got.Status)
		require.Equal(t, "forbidden", got.Warning)
	})
	t.Run("lookup error", func(t *testing.T) {
		p := newTestPipeline(&fakeStore{getErr: apperr.ErrNotFound}, Config{})
		_, err := p.Refresh(context.Background(), "a1")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})
	t.Run("missing id", func(t *testing.T) {
		p := newTestPipeline(&fakeStore{}, Config{})
		_, err := p.Refresh(context.Background(), " ")
		require.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestPlaceholder(t *testing.T) {
	u := Placeholder("abcdefghijkl")
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, "data:image/svg+xml;base64,"))
	require.NoError(t, err)
	svg := string(raw)
	require.Contains(t, svg, `width="800" height="450"`)
	require.Contains(t, svg, "Processing Image")
	require.Contains(t, svg, "ID: abcdefgh<")
	require.NotContains(t, svg, "ijkl")
}

func TestAltText(t *testing.T) {
	require.Equal(t, "sunset", AltText("sunset.jpg"))
	require.Equal(t, "my.photo", AltText("dir/my.photo.png"))
	require.Equal(t, "image", AltText(""))
	require.Equal(t, "image", AltText(".png"))
}
