package item

import "time"

// Kind tags an item record as a lost or a found report. The two kinds are
// symmetric and stored in separate tables; each one's counterpart during
// matching is the opposite kind.
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// Counterpart returns the opposite kind.
func (k Kind) Counterpart() Kind {
	if k == KindLost {
		return KindFound
	}
	return KindLost
}

type Status string

const (
	StatusLost      Status = "lost"
	StatusFound     Status = "found"
	StatusMatched   Status = "matched"
	StatusConfirmed Status = "confirmed"
)

// InitialStatus is the kind-specific status an item starts in and reverts to
// when a match candidate against it is declined.
func (k Kind) InitialStatus() Status {
	if k == KindLost {
		return StatusLost
	}
	return StatusFound
}

// Item is the domain representation of a lost or found report. It mirrors
// the lost_items/found_items rows; Kind records which table it came from.
type Item struct {
	ID          string
	Kind        Kind
	Name        string
	Description string
	Place       string
	ImageRef    *string
	OwnerUserID string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image returns the image reference or "" when the report has no image.
func (i Item) Image() string {
	if i.ImageRef == nil {
		return ""
	}
	return *i.ImageRef
}
