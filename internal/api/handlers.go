package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DominiquePaul/thisiscrispin/internal/auth"
	"github.com/DominiquePaul/thisiscrispin/internal/editor"
	"github.com/DominiquePaul/thisiscrispin/internal/richtext"
	"github.com/DominiquePaul/thisiscrispin/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	gate     *auth.Gate
	blog     Blog
	assets   Assets
	events   Events
	feedback Feedback
	locale   string
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	locale := d.Locale
	if locale == "" {
		locale = richtext.DefaultLocale
	}
	return &Handler{
		gate:     d.Gate,
		blog:     d.Blog,
		assets:   d.Assets,
		events:   d.Events,
		feedback: d.Feedback,
		locale:   locale,
	}
}

func (h *Handler) publish(kind string, data any) {
	if h.events == nil {
		return
	}
	h.events.Publish(sse.Event{Type: kind, Data: data})
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List published posts, newest first
//	@Tags			posts
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag id"
//	@Success		200		{object}	PostListResponse
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	posts, total, err := h.blog.ListPosts(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, "list posts failed", err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts, Total: total})
}

// GetPost handles GET /api/posts/{slug}.
//
//	@Summary		Get a published post rendered as markdown
//	@Tags			posts
//	@Produce		json
//	@Param			slug	path		string	true	"Post slug"
//	@Success		200		{object}	Post
//	@Failure		404		{object}	errResponse
//	@Router			/posts/{slug} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, err := h.blog.GetPost(r.Context(), slug)
	if err != nil {
		writeError(w, "get post failed", err, slog.String("slug", slug))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across published posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.blog.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search failed", err, slog.String("query", q))
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SavePost handles PUT /api/posts/{id}.
//
// Content fields are written before tags. When the tag update fails the
// content change stays in place and the response names the failed part.
//
//	@Summary		Save an editor draft
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Entry ID"
//	@Param			body	body		SavePostRequest	true	"Draft"
//	@Success		200		{object}	SuccessResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		SessionAuth
//	@Router			/posts/{id} [put]
func (h *Handler) SavePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SavePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	draft := editor.Draft{
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
		CoverImage: req.CoverImage,
		Excerpt:    req.Excerpt,
	}
	if err := editor.Save(r.Context(), h.blog, id, draft); err != nil {
		writeError(w, "save post failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
