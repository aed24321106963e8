package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/auth"
	"github.com/DominiquePaul/thisiscrispin/internal/blog"
	"github.com/DominiquePaul/thisiscrispin/internal/cms"
	"github.com/DominiquePaul/thisiscrispin/internal/editor"
	"github.com/DominiquePaul/thisiscrispin/internal/feedback"
	"github.com/DominiquePaul/thisiscrispin/internal/index"
	"github.com/DominiquePaul/thisiscrispin/internal/sse"
)

// Blog is the post service behind the API.
type Blog interface {
	editor.Persister

	ListPosts(ctx context.Context, limit, offset int, tag string) ([]blog.PostSummary, int, error)
	GetPost(ctx context.Context, slug string) (*blog.Post, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)

	GetEntry(ctx context.Context, id string) (cms.Entry, error)
	CreatePost(ctx context.Context, title string) (cms.Entry, error)
	UpdateFields(ctx context.Context, id string, values map[string]any) (cms.Entry, error)
	UpdateTags(ctx context.Context, id string, tagIDs []string) (cms.Entry, error)
	ListTags(ctx context.Context) ([]cms.Tag, error)
	CreateTag(ctx context.Context, name string) (cms.Tag, error)
	ListContentTypes(ctx context.Context) ([]cms.ContentType, error)
}

// Assets ingests uploads and reports asset status.
type Assets interface {
	Ingest(ctx context.Context, up assets.Upload) (assets.Record, error)
	Refresh(ctx context.Context, id string) (assets.Record, error)
	MaxUploadBytes() int
}

// Feedback accepts anonymous reader messages.
type Feedback interface {
	Submit(ctx context.Context, message, userAgent string) (feedback.Receipt, error)
}

// Events is the admin event stream.
type Events interface {
	http.Handler
	Publish(event sse.Event)
}

// Deps are the collaborators of the API router. Events and Feedback may be
// nil.
type Deps struct {
	Gate     *auth.Gate
	Blog     Blog
	Assets   Assets
	Events   Events
	Feedback Feedback
	Locale   string
}

// NewRouter creates a chi router with all API routes mounted. Reads of
// published posts, feedback and the auth endpoints are public; everything that talks
// to the CMS management API requires an admin session.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()

	// Auth.
	r.Post("/auth", h.Login)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/session", h.Session)

	// Published posts.
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{slug}", h.GetPost)
	r.Get("/search", h.Search)

	if d.Feedback != nil {
		r.Post("/feedback", h.SubmitFeedback)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(d.Gate))

		r.Put("/posts/{id}", h.SavePost)

		r.Route("/contentful", func(r chi.Router) {
			r.Post("/asset", h.UploadAsset)
			r.Get("/asset-status", h.AssetStatus)

			r.Get("/entry", h.GetEntry)
			r.Put("/entry", h.UpdateEntry)
			r.Post("/entry", h.CreateEntry)

			r.Get("/tags", h.ListTags)
			r.Post("/tags", h.CreateTag)
			r.Put("/tags", h.UpdateTags)

			r.Get("/content-types", h.ListContentTypes)
		})

		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}
	})

	return r
}
