package models

import "time"

type RelationshipStatus string

const (
	RelationshipPending RelationshipStatus = "pending"
	RelationshipContact RelationshipStatus = "contact"
	RelationshipBlocked RelationshipStatus = "blocked"
)

// Relationship is one user's view of another. The pairing is asymmetric:
// (owner, other) and (other, owner) are independent rows with independent
// statuses. Row lifecycle is owned by the external contact system; this
// service only reads them.
type Relationship struct {
	OwnerID   int64              `json:"ownerId"`
	OtherID   int64              `json:"otherId"`
	Status    RelationshipStatus `json:"status"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
