package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medialog/medialog/internal/auth"
	"github.com/medialog/medialog/internal/domain"
	"github.com/medialog/medialog/internal/export"
	"github.com/medialog/medialog/internal/repository"
	"github.com/medialog/medialog/internal/review"
)

type reviewCreateRequest struct {
	TitleID string  `json:"titleId" validate:"required,uuid4"`
	Score   int     `json:"score" validate:"required"`
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

// optionalString distinguishes an absent JSON field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

type reviewUpdateRequest struct {
	Score   *int           `json:"score"`
	Comment optionalString `json:"comment"`
}

type reviewResponse struct {
	ID            string    `json:"id"`
	TitleID       string    `json:"titleId"`
	UserID        string    `json:"userId"`
	Comment       *string   `json:"comment,omitempty"`
	Score         int       `json:"score"`
	LikesCount    int       `json:"likesCount"`
	DislikesCount int       `json:"dislikesCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type reviewListResponse struct {
	Items      []reviewResponse `json:"items"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

type deleteResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req reviewCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	created, err := s.reviews.Create(r.Context(), review.CreateInput{
		TitleID: req.TitleID,
		Comment: req.Comment,
		Score:   req.Score,
	}, actor)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, toReviewResponse(created))
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req reviewUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Score == nil && !req.Comment.Set {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "At least one of score or comment is required")
		return
	}
	if req.Comment.Value != nil && len(*req.Comment.Value) > 500 {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "comment must be at most 500 characters")
		return
	}

	updated, err := s.reviews.Update(r.Context(), id, review.UpdatePatch{
		Comment:    req.Comment.Value,
		SetComment: req.Comment.Set,
		Score:      req.Score,
	}, actor)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, toReviewResponse(updated))
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	deleted, err := s.reviews.Delete(r.Context(), id, actor)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, deleteResponse{DeletedCount: deleted})
}

func (s *Server) handleLikeReview(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, true)
}

func (s *Server) handleDislikeReview(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, false)
}

func (s *Server) handleReaction(w http.ResponseWriter, r *http.Request, like bool) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := s.reviews.React(r.Context(), id, like, actor); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	found, err := s.repo.Reviews.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(found))
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	filters, err := buildReviewFilters(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Reviews.List(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	items := make([]reviewResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, toReviewResponse(item))
	}
	s.respondJSON(w, http.StatusOK, reviewListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleExportReviews(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "format must be csv or json")
		return
	}

	titleID, err := uuidQueryParam(strings.TrimSpace(r.URL.Query().Get("titleId")))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid titleId value")
		return
	}

	rows, err := s.repo.Reviews.ExportRows(r.Context(), titleID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="reviews.csv"`)
		if err := export.WriteCSV(w, rows); err != nil {
			s.logger.Error().Err(err).Msg("csv export failed")
		}
	case "json":
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, rows); err != nil {
			s.logger.Error().Err(err).Msg("json export failed")
		}
	}
}

func buildReviewFilters(r *http.Request) (repository.ReviewListFilters, error) {
	var filters repository.ReviewListFilters
	query := r.URL.Query()

	titleID, err := uuidQueryParam(strings.TrimSpace(query.Get("titleId")))
	if err != nil {
		return filters, fmt.Errorf("invalid titleId value")
	}
	filters.TitleID = titleID

	userID, err := uuidQueryParam(strings.TrimSpace(query.Get("userId")))
	if err != nil {
		return filters, fmt.Errorf("invalid userId value")
	}
	filters.UserID = userID

	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeReviewCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func toReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:            r.ID,
		TitleID:       r.TitleID,
		UserID:        r.UserID,
		Comment:       r.Comment,
		Score:         r.Score,
		LikesCount:    r.LikesCount,
		DislikesCount: r.DislikesCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
