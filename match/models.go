package match

import "time"

// ReviewStatus tracks where a candidate sits in its owner review.
type ReviewStatus string

const (
	// ReviewUnconfirmed means the pairing awaits an owner decision.
	ReviewUnconfirmed ReviewStatus = "unconfirmed"
	// ReviewSucceeded means the lost item's owner confirmed the pairing.
	ReviewSucceeded ReviewStatus = "succeeded"
)

// Candidate pairs one lost item with one found item along with the similarity
// score that produced the pairing. A given (lost, found) pair exists at most
// once.
type Candidate struct {
	ID              string
	LostItemID      string
	FoundItemID     string
	SimilarityScore int
	ReviewStatus    ReviewStatus
	CreatedAt       time.Time
	// ConfirmedAt is nil until the lost item's owner confirms the pairing.
	ConfirmedAt *time.Time
}

// CandidateDetail augments a candidate with the owners and current statuses
// of both paired items, loaded under the same row locks as the candidate
// itself.
type CandidateDetail struct {
	Candidate
	LostOwnerID  string
	FoundOwnerID string
	LostStatus   string
	FoundStatus  string
}
