package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is a member profile. AuthID is the subject issued by the external auth provider.
type User struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	AuthID      string          `bson:"auth_id" json:"auth_id"`
	Username    string          `bson:"username" json:"username"`
	Name        string          `bson:"name" json:"name"`
	Bio         string          `bson:"bio" json:"bio"`
	Image       string          `bson:"image" json:"image"`
	Onboarded   bool            `bson:"onboarded" json:"onboarded"`
	Posts       []bson.ObjectID `bson:"posts" json:"posts"`
	Communities []bson.ObjectID `bson:"communities" json:"communities"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	cp := *u
	cp.Posts = append([]bson.ObjectID(nil), u.Posts...)
	cp.Communities = append([]bson.ObjectID(nil), u.Communities...)
	return &cp
}
