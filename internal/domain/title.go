package domain

import "time"

// Title types.
const (
	TitleTypeMovie = "movie"
	TitleTypeTV    = "tv"
	TitleTypeAnime = "anime"
)

// Title moderation statuses.
const (
	TitleStatusPending  = "pending"
	TitleStatusApproved = "approved"
	TitleStatusRejected = "rejected"
)

// Title represents a reviewable media entity. RatingAvg and RatingCount are
// derived state: they always equal the mean and count of the scores of all
// reviews referencing this title, and are only ever written by the rating
// aggregator inside a unit of work.
type Title struct {
	ID          string
	Type        string
	Title       string
	Description string
	Year        int
	Status      string
	PosterURL   string
	RatingAvg   float64
	RatingCount int
	Categories  []string
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidTitleType reports whether t is a recognised title type.
func ValidTitleType(t string) bool {
	return t == TitleTypeMovie || t == TitleTypeTV || t == TitleTypeAnime
}

// ValidTitleStatus reports whether s is a recognised moderation status.
func ValidTitleStatus(s string) bool {
	return s == TitleStatusPending || s == TitleStatusApproved || s == TitleStatusRejected
}
