package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DominiquePaul/thisiscrispin/internal/blog"
)

// GetEntry handles GET /api/contentful/entry.
//
//	@Summary		Get the management view of an entry
//	@Tags			contentful
//	@Produce		json
//	@Param			id	query		string	true	"Entry ID"
//	@Success		200	{object}	EntryResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/entry [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Entry ID is required"))
		return
	}
	entry, err := h.blog.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, "get entry failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Entry: entry})
}

// UpdateEntry handles PUT /api/contentful/entry.
//
// Fields are plain values keyed by field id; they are localized and merged
// into the entry, which is then published.
//
//	@Summary		Merge fields into an entry and publish it
//	@Tags			contentful
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateEntryRequest	true	"Fields to merge"
//	@Success		200		{object}	EntryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/entry [put]
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.EntryID == "" || len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("Entry ID and fields are required"))
		return
	}
	entry, err := h.blog.UpdateFields(r.Context(), req.EntryID, req.Fields)
	if err != nil {
		writeError(w, "update entry failed", err, slog.String("id", req.EntryID))
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Entry: entry})
}

// CreateEntry handles POST /api/contentful/entry.
//
//	@Summary		Create and publish a new post
//	@Tags			contentful
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEntryRequest	true	"Post title"
//	@Success		201		{object}	EntryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/entry [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ContentType != "" && req.ContentType != blog.DefaultContentType {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported content type "+req.ContentType))
		return
	}
	title := strings.TrimSpace(req.title(h.locale))
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Title is required"))
		return
	}
	entry, err := h.blog.CreatePost(r.Context(), title)
	if err != nil {
		writeError(w, "create entry failed", err, slog.String("title", title))
		return
	}
	writeJSON(w, http.StatusCreated, EntryResponse{Entry: entry})
}

// ListTags handles GET /api/contentful/tags.
//
//	@Summary		List tags
//	@Tags			contentful
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		SessionAuth
//	@Router			/contentful/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.blog.ListTags(r.Context())
	if err != nil {
		writeError(w, "list tags failed", err)
		return
	}
	out := make([]TagDTO, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagDTO(t))
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: out})
}

// CreateTag handles POST /api/contentful/tags.
//
//	@Summary		Create a tag
//	@Tags			contentful
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTagRequest	true	"Tag name"
//	@Success		201		{object}	TagResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Tag name is required"))
		return
	}
	tag, err := h.blog.CreateTag(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create tag failed", err, slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusCreated, TagResponse{Tag: tagDTO(tag)})
}

// UpdateTags handles PUT /api/contentful/tags.
//
//	@Summary		Replace the tags of an entry
//	@Tags			contentful
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateTagsRequest	true	"Entry and tag ids"
//	@Success		200		{object}	EntryResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/tags [put]
func (h *Handler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	var req UpdateTagsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.EntryID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Entry ID is required"))
		return
	}
	entry, err := h.blog.UpdateTags(r.Context(), req.EntryID, req.TagIDs)
	if err != nil {
		writeError(w, "update tags failed", err, slog.String("id", req.EntryID))
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Entry: entry})
}

// ListContentTypes handles GET /api/contentful/content-types.
//
//	@Summary		List content type schemas
//	@Tags			contentful
//	@Produce		json
//	@Success		200	{object}	ContentTypesResponse
//	@Security		SessionAuth
//	@Router			/contentful/content-types [get]
func (h *Handler) ListContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.blog.ListContentTypes(r.Context())
	if err != nil {
		writeError(w, "list content types failed", err)
		return
	}
	out := make([]ContentTypeDTO, 0, len(types))
	for _, ct := range types {
		dto := ContentTypeDTO{
			ID:           ct.Sys.ID,
			Name:         ct.Name,
			DisplayField: ct.DisplayField,
			Fields:       make([]ContentTypeField, 0, len(ct.Fields)),
		}
		for _, f := range ct.Fields {
			dto.Fields = append(dto.Fields, ContentTypeField{ID: f.ID, Name: f.Name, Type: f.Type, Required: f.Required})
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, ContentTypesResponse{ContentTypes: out})
}
