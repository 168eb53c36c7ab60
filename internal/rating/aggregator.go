// Package rating recomputes a title's derived rating aggregate from the full
// set of its reviews. Recompute must run inside the same unit of work as the
// review mutation that triggered it; the full re-read (rather than an
// incremental adjustment) keeps the aggregate exact under edits and deletes.
package rating

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/medialog/medialog/internal/domain"
	"github.com/medialog/medialog/internal/store"
)

// Recompute reads all review scores for the title through q, computes the new
// (average, count) pair, and persists it on the title row together with
// updated_at. When q is an open transaction the read observes the
// just-applied review mutation. Returns domain.ErrNotFound if the title row
// does not exist, which aborts the enclosing transaction.
func Recompute(ctx context.Context, q store.Querier, titleID string) (domain.RatingAggregate, error) {
	rows, err := q.Query(ctx, `SELECT score FROM reviews WHERE title_id = $1`, titleID)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("read scores: %w", err)
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return domain.RatingAggregate{}, err
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return domain.RatingAggregate{}, err
	}

	avg, count := aggregate(scores)

	tag, err := q.Exec(ctx, `
        UPDATE titles
        SET rating_avg = $2, rating_count = $3, updated_at = now()
        WHERE id = $1
    `, titleID, avg, count)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("write aggregate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.RatingAggregate{}, fmt.Errorf("%w: title %s", domain.ErrNotFound, titleID)
	}

	return domain.RatingAggregate{Average: avg, Count: int64(count)}, nil
}

// aggregate computes the mean score rounded half-up to one decimal place.
// Zero reviews yield (0, 0).
func aggregate(scores []int) (float64, int) {
	if len(scores) == 0 {
		return 0, 0
	}
	sum := 0
	for _, score := range scores {
		sum += score
	}
	mean := float64(sum) / float64(len(scores))
	return math.Round(mean*10) / 10, len(scores)
}

// Ranking computes a time-decayed, reaction-weighted score for a title. Each
// review contributes score * decay * interaction, where decay falls linearly
// with age to a floor of 0.5 after a year and interaction shifts by 1% per
// net like. Zero reviews yield 0. Read-only; no derived state is written.
func Ranking(ctx context.Context, q store.Querier, titleID string, now time.Time) (float64, error) {
	rows, err := q.Query(ctx, `
        SELECT score, likes_count, dislikes_count, created_at
        FROM reviews
        WHERE title_id = $1
    `, titleID)
	if err != nil {
		return 0, fmt.Errorf("read reviews: %w", err)
	}
	defer rows.Close()

	total := 0.0
	count := 0
	for rows.Next() {
		var (
			score    int
			likes    int
			dislikes int
			created  time.Time
		)
		if err := rows.Scan(&score, &likes, &dislikes, &created); err != nil {
			return 0, err
		}
		total += weightedScore(score, likes, dislikes, created, now)
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}

func weightedScore(score, likes, dislikes int, created, now time.Time) float64 {
	ageDays := now.Sub(created).Hours() / 24
	decay := math.Max(0.5, 1-ageDays/365)
	interaction := 1 + float64(likes-dislikes)*0.01
	return float64(score) * decay * interaction
}
