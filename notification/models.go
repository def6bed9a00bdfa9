package notification

import "time"

// Notification mirrors the notifications table. Rows are created by the
// dispatcher and only ever mutated by their recipient's read-flag updates;
// this module never deletes them.
type Notification struct {
	ID          string
	UserID      string
	Title       string
	Body        string
	CandidateID *string
	IsRead      bool
	CreatedAt   time.Time
}

// Event is the realtime payload pushed to the recipient's channel after the
// notification row is durably persisted.
type Event struct {
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	CandidateID *string `json:"candidate_id,omitempty"`
}
