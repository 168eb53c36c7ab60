package domain

import "time"

// Category groups titles by genre or theme.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
