package repository

import "go.mongodb.org/mongo-driver/v2/bson"

// SortOrder is the direction applied to created_at.
type SortOrder int

const (
	SortDesc SortOrder = -1
	SortAsc  SortOrder = 1
)

// ParseSortOrder accepts "asc"/"desc" (and the 1/-1 spellings); anything else is desc.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "asc", "ascending", "1":
		return SortAsc
	default:
		return SortDesc
	}
}

// UserFilter narrows user listings.
type UserFilter struct {
	// ExcludeID drops one user (the caller) from the result when set.
	ExcludeID bson.ObjectID
	// Search is a plain substring matched case-insensitively on username or name.
	Search string
	Sort   SortOrder
}

// CommunityFilter narrows community listings.
type CommunityFilter struct {
	Search string
	Sort   SortOrder
}
