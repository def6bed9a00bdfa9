package notification

import (
	"context"
	"log/slog"
)

// Publisher pushes a notification event to any live subscriber of the
// recipient. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, userID string, event Event) error
}

// Service persists notifications and fans them out to live channels.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Notify stores the notification and then attempts a realtime publish. The
// stored row is the source of truth, so a publish failure is logged and the
// notification is still returned as created.
func (s *Service) Notify(ctx context.Context, userID, title, body string, candidateID *string) (Notification, error) {
	n, err := s.repo.Insert(ctx, userID, title, body, candidateID)
	if err != nil {
		return Notification{}, err
	}

	if s.publisher != nil {
		event := Event{Title: n.Title, Body: n.Body, CandidateID: n.CandidateID}
		if err := s.publisher.Publish(ctx, userID, event); err != nil {
			s.logger.Warn("realtime publish failed",
				"user_id", userID,
				"notification_id", n.ID,
				"error", err)
		}
	}
	return n, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (Notification, error) {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
