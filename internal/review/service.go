// Package review implements the review lifecycle: each create, update, or
// delete is one atomic transition that keeps the owning title's rating
// aggregate consistent with the full review set.
package review

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medialog/medialog/internal/domain"
	"github.com/medialog/medialog/internal/rating"
	"github.com/medialog/medialog/internal/repository"
	"github.com/medialog/medialog/internal/store"
)

// Service orchestrates review mutations. Every mutation that can change a
// title's aggregate runs the review write and the recompute inside a single
// unit of work, so review existence and aggregate correctness never diverge.
type Service struct {
	store    *store.Store
	repo     *repository.Repository
	scoreMin int
	scoreMax int
	logger   zerolog.Logger
}

// NewService constructs the lifecycle service with the configured score range.
func NewService(st *store.Store, repo *repository.Repository, scoreMin, scoreMax int, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		repo:     repo,
		scoreMin: scoreMin,
		scoreMax: scoreMax,
		logger:   logger,
	}
}

// CreateInput carries a validated review creation request.
type CreateInput struct {
	TitleID string
	Comment *string
	Score   int
}

// UpdatePatch carries the permitted mutable fields. A nil Score is left
// unchanged. The comment is written only when SetComment is true, so an
// explicit clear (SetComment with a nil Comment) is distinct from leaving it
// alone.
type UpdatePatch struct {
	Comment    *string
	SetComment bool
	Score      *int
}

// Create inserts a review and recomputes the owning title's aggregate in one
// transaction.
func (s *Service) Create(ctx context.Context, input CreateInput, actor domain.User) (domain.Review, error) {
	if err := s.validateScore(input.Score); err != nil {
		return domain.Review{}, err
	}

	var created domain.Review
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx pgx.Tx) error {
		repo := s.repo.WithTx(tx)
		review, err := repo.Reviews.Create(ctx, repository.ReviewCreateParams{
			TitleID: input.TitleID,
			UserID:  actor.ID,
			Comment: input.Comment,
			Score:   input.Score,
		})
		if err != nil {
			return err
		}
		if _, err := rating.Recompute(ctx, tx, review.TitleID); err != nil {
			return err
		}
		created = review
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	s.logger.Info().
		Str("review_id", created.ID).
		Str("title_id", created.TitleID).
		Int("score", created.Score).
		Msg("review created")
	return created, nil
}

// Update applies the permitted fields to a review owned by the actor (or any
// review, for admins). The aggregate is recomputed only when the score
// actually changed; a comment-only edit leaves it untouched.
func (s *Service) Update(ctx context.Context, reviewID string, patch UpdatePatch, actor domain.User) (domain.Review, error) {
	if patch.Score != nil {
		if err := s.validateScore(*patch.Score); err != nil {
			return domain.Review{}, err
		}
	}

	var updated domain.Review
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx pgx.Tx) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Reviews.GetByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if err := authorize(current, actor); err != nil {
			return err
		}

		scoreChanged := patch.Score != nil && *patch.Score != current.Score

		updated, err = repo.Reviews.Update(ctx, reviewID, patch.Comment, patch.SetComment, patch.Score)
		if err != nil {
			return err
		}
		if scoreChanged {
			if _, err := rating.Recompute(ctx, tx, current.TitleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	s.logger.Info().Str("review_id", updated.ID).Msg("review updated")
	return updated, nil
}

// Delete removes a review and recomputes the aggregate over the remaining
// set, in one transaction. Returns the deleted count (always 1 on success).
func (s *Service) Delete(ctx context.Context, reviewID string, actor domain.User) (int64, error) {
	var deleted int64
	err := s.store.RunAtomic(ctx, func(ctx context.Context, tx pgx.Tx) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Reviews.GetByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if err := authorize(current, actor); err != nil {
			return err
		}

		deleted, err = repo.Reviews.Delete(ctx, reviewID)
		if err != nil {
			return err
		}
		if _, err := rating.Recompute(ctx, tx, current.TitleID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Str("review_id", reviewID).Msg("review deleted")
	return deleted, nil
}

// React registers a like or dislike from the actor. Reviews cannot receive
// reactions from their own author. Reactions never touch the aggregate.
func (s *Service) React(ctx context.Context, reviewID string, like bool, actor domain.User) error {
	current, err := s.repo.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if current.UserID == actor.ID {
		return fmt.Errorf("%w: cannot react to your own review", domain.ErrValidation)
	}
	return s.repo.Reviews.AddReaction(ctx, reviewID, like)
}

func (s *Service) validateScore(score int) error {
	if score < s.scoreMin || score > s.scoreMax {
		return fmt.Errorf("%w: score must be between %d and %d", domain.ErrValidation, s.scoreMin, s.scoreMax)
	}
	return nil
}

// authorize allows the review's owner and admins.
func authorize(review domain.Review, actor domain.User) error {
	if actor.IsAdmin() || review.UserID == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: only the review owner or an admin may modify it", domain.ErrForbidden)
}
