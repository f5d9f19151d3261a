// Package ipc provides the HTTP API for the gallery engine.
package ipc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/invisible-gallery/internal/dispatch"
	"github.com/anthropics/invisible-gallery/internal/domain"
	"github.com/anthropics/invisible-gallery/internal/gallery"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Service    *gallery.Service
	Dispatcher *dispatch.Dispatcher
}

// CreateArtworkRequest is the body for POST /api/v1/artworks. Content is
// base64-encoded plaintext; it is encrypted before persistence.
type CreateArtworkRequest struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	ArtistID      string             `json:"artist_id"`
	MediaType     string             `json:"media_type"`
	ContentBase64 string             `json:"content_base64"`
	Conditions    []ConditionRequest `json:"conditions"`
}

// ConditionRequest is one reveal condition in a create request.
type ConditionRequest struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// ArtworkResponse is the public view of an artwork. The encrypted blob is
// never serialized.
type ArtworkResponse struct {
	ArtworkID   string `json:"artwork_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ArtistID    string `json:"artist_id"`
	MediaType   string `json:"media_type"`
	IsRevealed  bool   `json:"is_revealed"`
	ViewCount   int64  `json:"view_count"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// RecordViewRequest is the body for POST /api/v1/artworks/{artworkID}/views.
type RecordViewRequest struct {
	ViewerID     string `json:"viewer_id"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
	WithinRegion bool   `json:"within_region"`
}

// RecordCommentRequest is the body for POST /api/v1/artworks/{artworkID}/comments.
type RecordCommentRequest struct {
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}

// CommentResponse wraps a recorded comment and its disclosure outcome.
type CommentResponse struct {
	CommentID string                `json:"comment_id"`
	Outcome   *domain.RevealOutcome `json:"outcome"`
}

// ContentResponse is the body for GET /api/v1/artworks/{artworkID}/content.
type ContentResponse struct {
	ArtworkID     string `json:"artwork_id"`
	MediaType     string `json:"media_type"`
	ContentBase64 string `json:"content_base64"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateArtwork handles POST /api/v1/artworks.
func (h *Handler) CreateArtwork(w http.ResponseWriter, r *http.Request) {
	var req CreateArtworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.Title == "" || req.ArtistID == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "title and artist_id are required"})
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "content_base64 is not valid base64"})
		return
	}

	conds := make([]gallery.NewCondition, len(req.Conditions))
	for i, c := range req.Conditions {
		conds[i] = gallery.NewCondition{Kind: c.Kind, ParamsJSON: string(c.Params)}
	}

	artwork, err := h.Service.CreateArtwork(r.Context(), gallery.NewArtwork{
		Title:       req.Title,
		Description: req.Description,
		ArtistID:    req.ArtistID,
		MediaType:   req.MediaType,
		Content:     content,
		Conditions:  conds,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toArtworkResponse(artwork))
}

// GetArtwork handles GET /api/v1/artworks/{artworkID}.
func (h *Handler) GetArtwork(w http.ResponseWriter, r *http.Request) {
	artwork, err := h.Service.GetArtwork(r.Context(), r.PathValue("artworkID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtworkResponse(artwork))
}

// GetContent handles GET /api/v1/artworks/{artworkID}/content.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	artworkID := r.PathValue("artworkID")
	plaintext, mediaType, err := h.Service.GetContent(r.Context(), artworkID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{
		ArtworkID:     artworkID,
		MediaType:     mediaType,
		ContentBase64: base64.StdEncoding.EncodeToString(plaintext),
	})
}

// ListConditions handles GET /api/v1/artworks/{artworkID}/conditions.
func (h *Handler) ListConditions(w http.ResponseWriter, r *http.Request) {
	conds, err := h.Service.ListConditions(r.Context(), r.PathValue("artworkID"))
	if err != nil {
		writeError(w, err)
		return
	}
	type conditionResponse struct {
		ConditionID string          `json:"condition_id"`
		Kind        string          `json:"kind"`
		Params      json.RawMessage `json:"params"`
		IsMet       bool            `json:"is_met"`
	}
	out := make([]conditionResponse, len(conds))
	for i, c := range conds {
		out[i] = conditionResponse{
			ConditionID: c.ConditionID,
			Kind:        string(c.Kind),
			Params:      json.RawMessage(c.ParamsJSON),
			IsMet:       c.IsMet,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// RecordView handles POST /api/v1/artworks/{artworkID}/views.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	var req RecordViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	outcome, err := h.Service.RecordView(r.Context(), r.PathValue("artworkID"), req.ViewerID, domain.ViewMetadata{
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		WithinRegion: req.WithinRegion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// RecordComment handles POST /api/v1/artworks/{artworkID}/comments.
func (h *Handler) RecordComment(w http.ResponseWriter, r *http.Request) {
	var req RecordCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.AuthorID == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "author_id and content are required"})
		return
	}

	commentID, outcome, err := h.Service.RecordComment(r.Context(), r.PathValue("artworkID"), req.AuthorID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CommentResponse{CommentID: commentID, Outcome: outcome})
}

// StreamArtworkEvents handles GET /api/v1/artworks/{artworkID}/events/stream (SSE).
func (h *Handler) StreamArtworkEvents(w http.ResponseWriter, r *http.Request) {
	h.streamTopic(w, r, dispatch.ArtworkTopic(r.PathValue("artworkID")))
}

// StreamUserEvents handles GET /api/v1/users/{userID}/events/stream (SSE).
func (h *Handler) StreamUserEvents(w http.ResponseWriter, r *http.Request) {
	h.streamTopic(w, r, dispatch.UserTopic(r.PathValue("userID")))
}

func (h *Handler) streamTopic(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, APIError{Code: 500, Message: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.Dispatcher.Subscribe(topic)
	defer h.Dispatcher.Unsubscribe(sub)

	ctx := r.Context()
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func toArtworkResponse(a *domain.Artwork) ArtworkResponse {
	return ArtworkResponse{
		ArtworkID:   a.ArtworkID,
		Title:       a.Title,
		Description: a.Description,
		ArtistID:    a.ArtistID,
		MediaType:   a.MediaType,
		IsRevealed:  a.IsRevealed,
		ViewCount:   a.ViewCount,
		CreatedAt:   a.CreatedAtUnix,
		UpdatedAt:   a.UpdatedAtUnix,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if engErr, ok := err.(*domain.EngineError); ok {
		status := http.StatusInternalServerError
		switch engErr.Code {
		case domain.ErrArtworkNotFound.Code, domain.ErrConditionNotFound.Code:
			status = http.StatusNotFound
		case domain.ErrDuplicateArtwork.Code:
			status = http.StatusConflict
		case domain.ErrNotRevealed.Code:
			status = http.StatusForbidden
		case domain.ErrUnknownConditionKind.Code, domain.ErrEmptyContent.Code:
			status = http.StatusUnprocessableEntity
		case domain.ErrContentUnavailable.Code:
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, APIError{Code: engErr.Code, Message: engErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, APIError{Code: -1, Message: err.Error()})
}
