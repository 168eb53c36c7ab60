package domain

import "time"

// Review represents a scored, optionally-commented opinion by a user on
// exactly one title. Mutated only by its owner or an admin.
type Review struct {
	ID            string
	TitleID       string
	UserID        string
	Comment       *string
	Score         int
	LikesCount    int
	DislikesCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RatingAggregate is the derived (average, count) pair for a title's reviews.
type RatingAggregate struct {
	Average float64
	Count   int64
}
