// Package entities contains main entities of service.
package entities

import (
	"time"
)

// Account is a user of the credential store.
type Account struct {
	ID        int64
	Mail      string
	Password  string // bcrypt digest
	FirstName string
	LastName  string
	Avatar    string
	Connected bool
	LastLogin time.Time
}

// DisplayName returns the name rendered in feeds and broadcasts.
func (a Account) DisplayName() string {
	return a.FirstName + " " + a.LastName
}

// Post is a feed entry of the content store.
//
// Creation date and time-of-day are kept as separate strings, the way the
// frontend consumes them.
type Post struct {
	ID        string
	Body      string
	CreatedBy int64
	Date      string
	Hour      string
	Likes     int64
	LikedBy   []int64
	Comments  []Comment
	Hashtags  []string
	Images    []string

	IsShared     bool
	OriginalPost string
	SharedFrom   int64
}

// Comment is a sub-entity of a post, it has no identity outside its parent.
type Comment struct {
	ID        string
	CreatedBy int64
	Text      string
	Date      string
	Hour      string
}

// ConnectedUser is an account currently marked as connected.
type ConnectedUser struct {
	ID        int64
	Mail      string
	FirstName string
	LastName  string
	Avatar    string
}
