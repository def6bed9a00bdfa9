package item

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lostfound/verifier"
)

var (
	// ErrIrrelevantDescription signals the relevance check explicitly
	// rejected the submission. Verifier unavailability never maps here.
	ErrIrrelevantDescription = errors.New("item: description does not describe the reported item")
)

// RelevanceChecker gates intake on whether the description actually
// describes the claimed item.
type RelevanceChecker interface {
	Verify(ctx context.Context, name, description string) verifier.Verdict
}

// CreatedHook is invoked after an item is committed. Implementations must
// return quickly; the matching orchestrator satisfies this by enqueueing a
// background scan.
type CreatedHook interface {
	OnItemCreated(it Item)
}

// CreateParams enumerates the fields supplied by the intake flow.
type CreateParams struct {
	Name        string
	Description string
	Place       string
	ImageRef    *string
	OwnerUserID string
}

// Service implements item intake: relevance gate, insert, then the
// asynchronous matching hook. Create calls return before any scan runs.
type Service struct {
	repo      Repository
	relevance RelevanceChecker
	hook      CreatedHook
	logger    *slog.Logger
	idGen     func() string
	now       func() time.Time
}

func NewService(repo Repository, relevance RelevanceChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		relevance: relevance,
		logger:    logger,
		idGen:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

// WithCreatedHook registers the post-commit hook (the matching orchestrator).
func (s *Service) WithCreatedHook(hook CreatedHook) *Service {
	s.hook = hook
	return s
}

// WithIDGenerator overrides id generation, primarily for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// CreateLost registers a lost-item report.
func (s *Service) CreateLost(ctx context.Context, params CreateParams) (Item, error) {
	return s.create(ctx, KindLost, params)
}

// CreateFound registers a found-item report.
func (s *Service) CreateFound(ctx context.Context, params CreateParams) (Item, error) {
	return s.create(ctx, KindFound, params)
}

func (s *Service) create(ctx context.Context, kind Kind, params CreateParams) (Item, error) {
	if params.OwnerUserID == "" {
		return Item{}, fmt.Errorf("item: missing owner user id")
	}
	if params.Name == "" || params.Description == "" {
		return Item{}, fmt.Errorf("item: name and description are required")
	}

	if s.relevance != nil {
		switch s.relevance.Verify(ctx, params.Name, params.Description) {
		case verifier.VerdictIrrelevant:
			return Item{}, ErrIrrelevantDescription
		case verifier.VerdictUnavailable:
			// Intake must not block on verifier unavailability.
			s.logger.Warn("relevance verification unavailable, accepting submission",
				"kind", kind, "name", params.Name)
		}
	}

	created, err := s.repo.Create(ctx, Item{
		ID:          s.idGen(),
		Kind:        kind,
		Name:        params.Name,
		Description: params.Description,
		Place:       params.Place,
		ImageRef:    params.ImageRef,
		OwnerUserID: params.OwnerUserID,
		Status:      kind.InitialStatus(),
	})
	if err != nil {
		return Item{}, err
	}

	if s.hook != nil {
		s.hook.OnItemCreated(created)
	}

	return created, nil
}

// GetByID returns one item of the given kind.
func (s *Service) GetByID(ctx context.Context, kind Kind, id string) (Item, error) {
	return s.repo.GetByID(ctx, kind, id)
}

// ListByOwner returns the caller's reports of the given kind.
func (s *Service) ListByOwner(ctx context.Context, kind Kind, ownerID string) ([]Item, error) {
	return s.repo.ListByOwner(ctx, kind, ownerID)
}
