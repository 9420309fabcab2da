package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Post is a thread or a reply. A post without Parent is a top-level thread.
type Post struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Text      string          `bson:"text" json:"text"`
	Author    bson.ObjectID   `bson:"author" json:"author"`
	Parent    *bson.ObjectID  `bson:"parent,omitempty" json:"parent,omitempty"`
	Ancestors []bson.ObjectID `bson:"ancestors" json:"-"`
	Community *bson.ObjectID  `bson:"community,omitempty" json:"community,omitempty"`
	Children  []bson.ObjectID `bson:"children" json:"children"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
}

// IsReply reports whether the post answers another post.
func (p *Post) IsReply() bool {
	return p.Parent != nil && !p.Parent.IsZero()
}

// RootID returns the id of the top-level post of the tree p belongs to.
func (p *Post) RootID() bson.ObjectID {
	if len(p.Ancestors) > 0 {
		return p.Ancestors[0]
	}
	if p.IsReply() {
		return *p.Parent
	}
	return p.ID
}

// Clone returns a deep copy so callers can mutate slices freely.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Ancestors = append([]bson.ObjectID(nil), p.Ancestors...)
	cp.Children = append([]bson.ObjectID(nil), p.Children...)
	if p.Parent != nil {
		parent := *p.Parent
		cp.Parent = &parent
	}
	if p.Community != nil {
		community := *p.Community
		cp.Community = &community
	}
	return &cp
}
