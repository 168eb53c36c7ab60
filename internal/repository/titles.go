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

// TitlesRepository provides persistence helpers for title entities.
type TitlesRepository struct {
	db store.Querier
}

const titleColumns = `
    id,
    type,
    title,
    description,
    year,
    status,
    poster_url,
    rating_avg,
    rating_count,
    created_by,
    created_at,
    updated_at
`

// TitleCreateParams bundles the fields required to create a title.
type TitleCreateParams struct {
	Type        string
	Title       string
	Description string
	Year        int
	PosterURL   string
	CategoryIDs []string
	CreatedBy   *string
}

// TitleListFilters encapsulates search and pagination options.
type TitleListFilters struct {
	Query      *string
	Type       *string
	Status     *string
	CategoryID *string
	Limit      int
	Cursor     *TitleCursor
}

// TitleCursor allows stable pagination by created_at/id.
type TitleCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// TitleListResult returns the paginated payload.
type TitleListResult struct {
	Items      []domain.Title
	NextCursor *string
}

// Create inserts a new title row plus its category links and returns the
// stored entity. A duplicate (type, title, year) surfaces as domain.ErrConflict.
func (r *TitlesRepository) Create(ctx context.Context, params TitleCreateParams) (domain.Title, error) {
	query := fmt.Sprintf(`
        INSERT INTO titles (id, type, title, description, year, poster_url, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING %s
    `, titleColumns)

	id := uuid.NewString()
	row := r.db.QueryRow(ctx, query, id, params.Type, params.Title, params.Description, params.Year, params.PosterURL, params.CreatedBy)
	_, err := scanTitle(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Title{}, fmt.Errorf("%w: a title with that name already exists for this type and year", domain.ErrConflict)
		}
		return domain.Title{}, err
	}

	for _, categoryID := range params.CategoryIDs {
		_, err := r.db.Exec(ctx, `INSERT INTO title_categories (title_id, category_id) VALUES ($1,$2)`, id, categoryID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return domain.Title{}, fmt.Errorf("%w: category %s does not exist", domain.ErrNotFound, categoryID)
			}
			return domain.Title{}, err
		}
	}

	return r.GetByID(ctx, id)
}

// GetByID fetches a title by its identifier, including category names.
func (r *TitlesRepository) GetByID(ctx context.Context, id string) (domain.Title, error) {
	query := fmt.Sprintf(`SELECT %s FROM titles WHERE id = $1`, titleColumns)
	title, err := scanTitle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Title{}, domain.ErrNotFound
		}
		return domain.Title{}, err
	}

	rows, err := r.db.Query(ctx, `
        SELECT c.name FROM categories c
        JOIN title_categories tc ON tc.category_id = c.id
        WHERE tc.title_id = $1
        ORDER BY c.name
    `, id)
	if err != nil {
		return domain.Title{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return domain.Title{}, err
		}
		title.Categories = append(title.Categories, name)
	}
	if err := rows.Err(); err != nil {
		return domain.Title{}, err
	}
	return title, nil
}

// TitleUpdateParams carries the optional fields of a title edit. Nil fields
// keep their current value.
type TitleUpdateParams struct {
	Title       *string
	Description *string
	Year        *int
	PosterURL   *string
}

// Update applies the permitted fields and returns the stored entity with its
// categories. A rename that collides with an existing (type, title, year)
// surfaces as domain.ErrConflict.
func (r *TitlesRepository) Update(ctx context.Context, id string, params TitleUpdateParams) (domain.Title, error) {
	query := fmt.Sprintf(`
        UPDATE titles
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            year = COALESCE($4, year),
            poster_url = COALESCE($5, poster_url),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, titleColumns)

	_, err := scanTitle(r.db.QueryRow(ctx, query, id, params.Title, params.Description, params.Year, params.PosterURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Title{}, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Title{}, fmt.Errorf("%w: a title with that name already exists for this type and year", domain.ErrConflict)
		}
		return domain.Title{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdateStatus moves a title through the moderation lifecycle.
func (r *TitlesRepository) UpdateStatus(ctx context.Context, id, status string) (domain.Title, error) {
	query := fmt.Sprintf(`
        UPDATE titles
        SET status = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, titleColumns)

	title, err := scanTitle(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Title{}, domain.ErrNotFound
		}
		return domain.Title{}, err
	}
	return title, nil
}

// Delete removes a title; its reviews cascade.
func (r *TitlesRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetAggregate reads the persisted rating aggregate for a title.
func (r *TitlesRepository) GetAggregate(ctx context.Context, id string) (domain.RatingAggregate, error) {
	var agg domain.RatingAggregate
	err := r.db.QueryRow(ctx, `SELECT rating_avg, rating_count FROM titles WHERE id = $1`, id).
		Scan(&agg.Average, &agg.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RatingAggregate{}, domain.ErrNotFound
		}
		return domain.RatingAggregate{}, err
	}
	return agg, nil
}

// List returns titles that match the provided filters.
func (r *TitlesRepository) List(ctx context.Context, filters TitleListFilters) (TitleListResult, error) {
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

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + strings.TrimSpace(*filters.Query) + "%"
		where = append(where, fmt.Sprintf("title ILIKE %s", arg(q)))
	}
	if filters.Type != nil && strings.TrimSpace(*filters.Type) != "" {
		where = append(where, fmt.Sprintf("type = %s", arg(strings.TrimSpace(*filters.Type))))
	}
	if filters.Status != nil && strings.TrimSpace(*filters.Status) != "" {
		where = append(where, fmt.Sprintf("status = %s", arg(strings.TrimSpace(*filters.Status))))
	}
	if filters.CategoryID != nil {
		where = append(where, fmt.Sprintf("id IN (SELECT title_id FROM title_categories WHERE category_id = %s)", arg(*filters.CategoryID)))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(titleColumns)
	queryBuilder.WriteString(" FROM titles")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return TitleListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Title, 0)
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return TitleListResult{}, err
		}
		items = append(items, title)
	}
	if err := rows.Err(); err != nil {
		return TitleListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeTitleCursor(TitleCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return TitleListResult{}, err
		}
		nextCursor = &token
	}

	return TitleListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanTitle(row pgx.Row) (domain.Title, error) {
	var title domain.Title
	err := row.Scan(
		&title.ID,
		&title.Type,
		&title.Title,
		&title.Description,
		&title.Year,
		&title.Status,
		&title.PosterURL,
		&title.RatingAvg,
		&title.RatingCount,
		&title.CreatedBy,
		&title.CreatedAt,
		&title.UpdatedAt,
	)
	if err != nil {
		return domain.Title{}, err
	}
	return title, nil
}

func encodeTitleCursor(c TitleCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeTitleCursor parses a cursor token into a TitleCursor.
func DecodeTitleCursor(token string) (*TitleCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor TitleCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
