package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"lostfound/auth"
	"lostfound/notification"
)

var (
	ErrForbidden         = errors.New("match: actor may not review this candidate")
	ErrInvalidTransition = errors.New("match: candidate not awaiting review")
)

// TxBeginner abstracts the pgx pool so the service can be exercised with a
// fake transaction in tests.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier delivers a notification to one user. Implemented by
// notification.Service.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, candidateID *string) (notification.Notification, error)
}

// Service applies owner decisions to match candidates. Confirm and Decline
// run in a single transaction over the candidate and both item rows so the
// tri-state transition is atomic.
type Service struct {
	pool     TxBeginner
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(pool TxBeginner, repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pool:     pool,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Confirm marks the candidate as succeeded and both items as confirmed. Only
// the lost item's owner, or an admin, may confirm.
func (s *Service) Confirm(ctx context.Context, actor auth.Actor, candidateID string) (Candidate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Candidate{}, fmt.Errorf("match: begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	detail, err := s.repo.GetDetailForUpdate(ctx, tx, candidateID)
	if err != nil {
		return Candidate{}, err
	}
	if actor.UserID != detail.LostOwnerID && !actor.IsAdmin() {
		return Candidate{}, ErrForbidden
	}
	if detail.ReviewStatus != ReviewUnconfirmed {
		return Candidate{}, ErrInvalidTransition
	}
	// A sibling candidate may have claimed one of the items already.
	if detail.LostStatus == "confirmed" || detail.FoundStatus == "confirmed" {
		return Candidate{}, ErrItemUnavailable
	}

	cand, err := s.repo.MarkSucceeded(ctx, tx, candidateID, s.now())
	if err != nil {
		return Candidate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Candidate{}, fmt.Errorf("match: commit confirm tx: %w", err)
	}

	s.notifyAfterCommit(ctx, detail.FoundOwnerID,
		"Match confirmed",
		"The owner confirmed your found item matches their lost item.",
		&cand.ID)
	if actor.UserID != detail.LostOwnerID {
		s.notifyAfterCommit(ctx, detail.LostOwnerID,
			"Match confirmed",
			"An administrator confirmed a match for your lost item.",
			&cand.ID)
	}
	return cand, nil
}

// Decline removes the candidate and returns both items to circulation unless
// another candidate already confirmed them. Either item's owner, or an admin,
// may decline.
func (s *Service) Decline(ctx context.Context, actor auth.Actor, candidateID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("match: begin decline tx: %w", err)
	}
	defer tx.Rollback(ctx)

	detail, err := s.repo.GetDetailForUpdate(ctx, tx, candidateID)
	if err != nil {
		return err
	}
	if actor.UserID != detail.LostOwnerID && actor.UserID != detail.FoundOwnerID && !actor.IsAdmin() {
		return ErrForbidden
	}
	if detail.ReviewStatus != ReviewUnconfirmed {
		return ErrInvalidTransition
	}

	if err := s.repo.DeleteAndRevert(ctx, tx, candidateID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("match: commit decline tx: %w", err)
	}

	// The candidate row is gone, so notifications carry no candidate link.
	if actor.UserID != detail.FoundOwnerID {
		s.notifyAfterCommit(ctx, detail.FoundOwnerID,
			"Match declined",
			"A suggested match for your found item was declined. The item is available for matching again.",
			nil)
	}
	if actor.UserID != detail.LostOwnerID {
		s.notifyAfterCommit(ctx, detail.LostOwnerID,
			"Match declined",
			"A suggested match for your lost item was declined. The item is available for matching again.",
			nil)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, candidateID string) (Candidate, error) {
	return s.repo.GetByID(ctx, candidateID)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Candidate, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) notifyAfterCommit(ctx context.Context, userID, title, body string, candidateID *string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, title, body, candidateID); err != nil {
		s.logger.Warn("review notification failed",
			"user_id", userID,
			"error", err)
	}
}
