package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/sse"
)

// multipartOverhead allows for boundaries and part headers around the file.
const multipartOverhead = 1 << 20

// UploadAsset handles POST /api/contentful/asset.
//
// Failures after the asset was created are not errors: the response carries
// a degraded status and a placeholder URL.
//
//	@Summary		Upload an image into the CMS
//	@Tags			contentful
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	AssetResponse
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/asset [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.assets.MaxUploadBytes())
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("file too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request format"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("File is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	rec, err := h.assets.Ingest(r.Context(), assets.Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, "asset upload failed", err, slog.String("file", header.Filename))
		return
	}
	h.publish(sse.AssetStatus, assetDTO(rec))
	writeJSON(w, http.StatusOK, AssetResponse{Success: true, Asset: assetDTO(rec)})
}

// AssetStatus handles GET /api/contentful/asset-status.
//
//	@Summary		Check an asset and publish it once processed
//	@Tags			contentful
//	@Produce		json
//	@Param			id	query		string	true	"Asset ID"
//	@Success		200	{object}	AssetResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		SessionAuth
//	@Router			/contentful/asset-status [get]
func (h *Handler) AssetStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Asset ID is required"))
		return
	}
	rec, err := h.assets.Refresh(r.Context(), id)
	if err != nil {
		writeError(w, "asset status failed", err, slog.String("id", id))
		return
	}
	h.publish(sse.AssetStatus, assetDTO(rec))
	writeJSON(w, http.StatusOK, AssetResponse{Success: true, Asset: assetDTO(rec)})
}
