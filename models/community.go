package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Community groups posts and members. Slug is the external identifier.
type Community struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Slug      string          `bson:"slug" json:"slug"`
	Name      string          `bson:"name" json:"name"`
	Username  string          `bson:"username" json:"username"`
	Image     string          `bson:"image" json:"image"`
	Bio       string          `bson:"bio" json:"bio"`
	CreatedBy bson.ObjectID   `bson:"created_by" json:"created_by"`
	Members   []bson.ObjectID `bson:"members" json:"members"`
	Posts     []bson.ObjectID `bson:"posts" json:"posts"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
}

// Clone returns a deep copy of the community.
func (c *Community) Clone() *Community {
	cp := *c
	cp.Members = append([]bson.ObjectID(nil), c.Members...)
	cp.Posts = append([]bson.ObjectID(nil), c.Posts...)
	return &cp
}
