package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medialog/medialog/internal/domain"
	"github.com/medialog/medialog/internal/store"
)

// ReviewsRepository provides persistence helpers for review entities.
type ReviewsRepository struct {
	db store.Querier
}

const reviewColumns = `
    id,
    title_id,
    user_id,
    comment,
    score,
    likes_count,
    dislikes_count,
    created_at,
    updated_at
`

// ReviewCreateParams bundles the fields required to create a review.
type ReviewCreateParams struct {
	TitleID string
	UserID  string
	Comment *string
	Score   int
}

// ReviewListFilters encapsulates search and pagination options.
type ReviewListFilters struct {
	TitleID *string
	UserID  *string
	Limit   int
	Cursor  *ReviewCursor
}

// ReviewCursor allows stable pagination by created_at/id.
type ReviewCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// ReviewListResult returns the paginated payload.
type ReviewListResult struct {
	Items      []domain.Review
	NextCursor *string
}

// ReviewExportRow is a review joined with its author and title for exports.
type ReviewExportRow struct {
	ID        string
	TitleName string
	UserName  string
	UserEmail string
	Comment   *string
	Score     int
	CreatedAt time.Time
}

// Create inserts a new review row and returns the stored entity. A missing
// title or user surfaces as domain.ErrNotFound via the FK violation.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (domain.Review, error) {
	query := fmt.Sprintf(`
        INSERT INTO reviews (id, title_id, user_id, comment, score)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, reviewColumns)

	row := r.db.QueryRow(ctx, query, uuid.NewString(), params.TitleID, params.UserID, params.Comment, params.Score)
	review, err := scanReview(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Review{}, fmt.Errorf("%w: referenced title or user does not exist", domain.ErrNotFound)
		}
		return domain.Review{}, err
	}
	return review, nil
}

// GetByID fetches a review by its identifier.
func (r *ReviewsRepository) GetByID(ctx context.Context, id string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	review, err := scanReview(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// Update applies the permitted fields (comment, score) and returns the stored
// entity. A nil score keeps the current value. The comment is written only
// when setComment is true; a nil comment with setComment clears it.
func (r *ReviewsRepository) Update(ctx context.Context, id string, comment *string, setComment bool, score *int) (domain.Review, error) {
	query := fmt.Sprintf(`
        UPDATE reviews
        SET comment = CASE WHEN $3 THEN $2 ELSE comment END,
            score = COALESCE($4, score),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, reviewColumns)

	review, err := scanReview(r.db.QueryRow(ctx, query, id, comment, setComment, score))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// Delete removes a review and reports how many rows were deleted.
func (r *ReviewsRepository) Delete(ctx context.Context, id string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AddReaction increments the like or dislike counter.
func (r *ReviewsRepository) AddReaction(ctx context.Context, id string, like bool) error {
	column := "dislikes_count"
	if like {
		column = "likes_count"
	}
	query := fmt.Sprintf(`UPDATE reviews SET %s = %s + 1 WHERE id = $1`, column, column)
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns reviews that match the provided filters.
func (r *ReviewsRepository) List(ctx context.Context, filters ReviewListFilters) (ReviewListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.TitleID != nil {
		where = append(where, fmt.Sprintf("title_id = %s", arg(*filters.TitleID)))
	}
	if filters.UserID != nil {
		where = append(where, fmt.Sprintf("user_id = %s", arg(*filters.UserID)))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(reviewColumns)
	queryBuilder.WriteString(" FROM reviews")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return ReviewListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return ReviewListResult{}, err
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return ReviewListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeReviewCursor(ReviewCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return ReviewListResult{}, err
		}
		nextCursor = &token
	}

	return ReviewListResult{Items: items, NextCursor: nextCursor}, nil
}

// ExportRows returns reviews joined with author and title names, optionally
// restricted to one title, for the CSV/JSON export writers.
func (r *ReviewsRepository) ExportRows(ctx context.Context, titleID *string) ([]ReviewExportRow, error) {
	query := `
        SELECT r.id, t.title, u.name, u.email, r.comment, r.score, r.created_at
        FROM reviews r
        JOIN titles t ON t.id = r.title_id
        JOIN users u ON u.id = r.user_id
    `
	args := []interface{}{}
	if titleID != nil {
		query += ` WHERE r.title_id = $1`
		args = append(args, *titleID)
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]ReviewExportRow, 0)
	for rows.Next() {
		var row ReviewExportRow
		if err := rows.Scan(&row.ID, &row.TitleName, &row.UserName, &row.UserEmail, &row.Comment, &row.Score, &row.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.TitleID,
		&review.UserID,
		&review.Comment,
		&review.Score,
		&review.LikesCount,
		&review.DislikesCount,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

func encodeReviewCursor(c ReviewCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeReviewCursor parses a cursor token into a ReviewCursor.
func DecodeReviewCursor(token string) (*ReviewCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor ReviewCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
