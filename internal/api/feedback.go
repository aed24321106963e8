package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
	"github.com/DominiquePaul/thisiscrispin/internal/feedback"
)

// maxFeedbackBody bounds the JSON envelope around a feedback message.
const maxFeedbackBody = 64 << 10

// SubmitFeedback handles POST /api/feedback.
//
//	@Summary		Send anonymous feedback to the author
//	@Tags			feedback
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FeedbackRequest	true	"Message"
//	@Success		200		{object}	FeedbackResponse
//	@Failure		400		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/feedback [post]
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxFeedbackBody)
	if err := decodeJSON(w, r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("Feedback is too long."))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("Feedback message is required."))
		return
	}
	message, _ := req.Message.(string)

	receipt, err := h.feedback.Submit(r.Context(), message, r.UserAgent())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, FeedbackResponse(receipt))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err)))
	case errors.Is(err, feedback.ErrTooLong):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("Feedback is too long."))
	default:
		slog.Error("failed to handle anonymous feedback", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Unable to record feedback right now."))
	}
}
