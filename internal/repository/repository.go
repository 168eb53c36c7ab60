package repository

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medialog/medialog/internal/store"
)

// Repository aggregates all entity-specific repositories. Each one issues its
// SQL through a store.Querier, so a Repository can be bound either to the
// shared pool or, via WithTx, to an open transaction.
type Repository struct {
	Users      *UsersRepository
	Titles     *TitlesRepository
	Reviews    *ReviewsRepository
	Categories *CategoriesRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return newWith(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return newWith(pool)
}

// WithTx returns a Repository whose queries run inside the given transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return newWith(tx)
}

func newWith(db store.Querier) *Repository {
	return &Repository{
		Users:      &UsersRepository{db: db},
		Titles:     &TitlesRepository{db: db},
		Reviews:    &ReviewsRepository{db: db},
		Categories: &CategoriesRepository{db: db},
	}
}
