package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medialog/medialog/internal/auth"
	"github.com/medialog/medialog/internal/domain"
	"github.com/medialog/medialog/internal/rating"
	"github.com/medialog/medialog/internal/repository"
)

type titleCreateRequest struct {
	Type        string   `json:"type" validate:"required"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Year        int      `json:"year" validate:"required,min=1888,max=2100"`
	PosterURL   string   `json:"posterUrl" validate:"omitempty,url"`
	CategoryIDs []string `json:"categoryIds" validate:"omitempty,dive,uuid4"`
}

type titleUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Year        *int    `json:"year" validate:"omitempty,min=1888,max=2100"`
	PosterURL   *string `json:"posterUrl" validate:"omitempty,url"`
}

type titleStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type titleResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Year        int       `json:"year"`
	Status      string    `json:"status"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	RatingAvg   float64   `json:"ratingAvg"`
	RatingCount int       `json:"ratingCount"`
	Categories  []string  `json:"categories"`
	CreatedBy   *string   `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type titleListResponse struct {
	Items      []titleResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

type ratingResponse struct {
	TitleID string  `json:"titleId"`
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

type rankingResponse struct {
	TitleID string  `json:"titleId"`
	Ranking float64 `json:"ranking"`
}

func (s *Server) handleCreateTitle(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req titleCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}
	if !domain.ValidTitleType(req.Type) {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be one of movie, tv, anime")
		return
	}

	params := repository.TitleCreateParams{
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Year:        req.Year,
		PosterURL:   req.PosterURL,
		CategoryIDs: req.CategoryIDs,
		CreatedBy:   &actor.ID,
	}

	// The title row and its category links commit or roll back as one, so a
	// bad category id never leaves an orphaned title behind.
	var created domain.Title
	err := s.store.RunAtomic(r.Context(), func(ctx context.Context, tx pgx.Tx) error {
		var err error
		created, err = s.repo.WithTx(tx).Titles.Create(ctx, params)
		return err
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, toTitleResponse(created))
}

func (s *Server) handleGetTitle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	found, err := s.repo.Titles.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toTitleResponse(found))
}

func (s *Server) handleGetTitleRating(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	agg, err := s.repo.Titles.GetAggregate(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ratingResponse{TitleID: id, Average: agg.Average, Count: agg.Count})
}

func (s *Server) handleGetTitleRanking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if _, err := s.repo.Titles.GetByID(r.Context(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}

	score, err := rating.Ranking(r.Context(), s.store.Pool(), id, time.Now())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rankingResponse{TitleID: id, Ranking: score})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
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

	var req titleUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}
	if req.Title == nil && req.Description == nil && req.Year == nil && req.PosterURL == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "At least one field is required")
		return
	}

	current, err := s.repo.Titles.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if !actor.IsAdmin() && (current.CreatedBy == nil || *current.CreatedBy != actor.ID) {
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "You are not allowed to perform this action")
		return
	}

	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	updated, err := s.repo.Titles.Update(r.Context(), id, repository.TitleUpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Year:        req.Year,
		PosterURL:   req.PosterURL,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, toTitleResponse(updated))
}

func (s *Server) handleUpdateTitleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req titleStatusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}
	if !domain.ValidTitleStatus(req.Status) {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status must be one of pending, approved, rejected")
		return
	}

	updated, err := s.repo.Titles.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toTitleResponse(updated))
}

func (s *Server) handleDeleteTitle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := s.repo.Titles.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{DeletedCount: 1})
}

func (s *Server) handleListTitles(w http.ResponseWriter, r *http.Request) {
	filters, err := buildTitleFilters(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Titles.List(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	items := make([]titleResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, toTitleResponse(item))
	}
	s.respondJSON(w, http.StatusOK, titleListResponse{Items: items, NextCursor: result.NextCursor})
}

func buildTitleFilters(r *http.Request) (repository.TitleListFilters, error) {
	var filters repository.TitleListFilters
	query := r.URL.Query()

	if val := strings.TrimSpace(query.Get("q")); val != "" {
		filters.Query = &val
	}
	if val := strings.TrimSpace(query.Get("type")); val != "" {
		if !domain.ValidTitleType(val) {
			return filters, fmt.Errorf("invalid type value")
		}
		filters.Type = &val
	}
	if val := strings.TrimSpace(query.Get("status")); val != "" {
		if !domain.ValidTitleStatus(val) {
			return filters, fmt.Errorf("invalid status value")
		}
		filters.Status = &val
	}
	categoryID, err := uuidQueryParam(strings.TrimSpace(query.Get("categoryId")))
	if err != nil {
		return filters, fmt.Errorf("invalid categoryId value")
	}
	filters.CategoryID = categoryID

	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeTitleCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func toTitleResponse(t domain.Title) titleResponse {
	categories := t.Categories
	if categories == nil {
		categories = []string{}
	}
	return titleResponse{
		ID:          t.ID,
		Type:        t.Type,
		Title:       t.Title,
		Description: t.Description,
		Year:        t.Year,
		Status:      t.Status,
		PosterURL:   t.PosterURL,
		RatingAvg:   t.RatingAvg,
		RatingCount: t.RatingCount,
		Categories:  categories,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
