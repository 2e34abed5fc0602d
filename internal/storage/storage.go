// Package storage contains storage interfaces.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound returned when requested entity doesn't exist.
var ErrNotFound = fmt.Errorf("not found")

// ErrAlreadyLiked returned when a liker is already in the post's likedBy set.
var ErrAlreadyLiked = fmt.Errorf("already liked")

// AccountStorage provides methods for interacting with the credential store.
type AccountStorage interface {
	// CreateAccount inserts the account and returns its generated id. There
	// is no signup flow, accounts are provisioned by the seed tool.
	CreateAccount(ctx context.Context, a *entities.Account) (int64, error)
	GetAccountByMail(ctx context.Context, mail string) (*entities.Account, error)
	GetAccounts(ctx context.Context, id ...int64) ([]*entities.Account, error)
	SetConnected(ctx context.Context, id int64, connected bool) error
	SetLastLogin(ctx context.Context, id int64, timestamp time.Time) error
	ListConnected(ctx context.Context) ([]*entities.ConnectedUser, error)

	Ping(ctx context.Context) error
}

// PostStorage provides methods for interacting with the content store.
type PostStorage interface {
	ListPosts(ctx context.Context, p *ListPostsParams) ([]*entities.Post, int64, error)
	GetPost(ctx context.Context, id string) (*entities.Post, error)
	CreatePost(ctx context.Context, p *entities.Post) (string, error)

	// LikePost increments the post's like counter and records the liker in a
	// single conditional update. ErrAlreadyLiked is returned when the liker
	// is already recorded, ErrNotFound when no post matches id.
	LikePost(ctx context.Context, id string, likedBy int64) error
	AddComment(ctx context.Context, id string, c *entities.Comment) error

	Ping(ctx context.Context) error
}

// SortType ...
type SortType string

const (
	// DateSortType ...
	DateSortType SortType = "date"
	// AuthorSortType ...
	AuthorSortType SortType = "author"
	// LikesSortType ...
	LikesSortType SortType = "likes"
)

// OrderType ...
type OrderType string

const (
	// AscendingOrder ...
	AscendingOrder OrderType = "asc"
	// DescendingOrder ...
	DescendingOrder OrderType = "desc"
)

// OwnerFilterType ...
type OwnerFilterType string

const (
	// AllOwnerFilter ...
	AllOwnerFilter OwnerFilterType = "all"
	// MineOwnerFilter ...
	MineOwnerFilter OwnerFilterType = "mine"
	// OthersOwnerFilter ...
	OthersOwnerFilter OwnerFilterType = "others"
)

// ListPostsParams ...
type ListPostsParams struct {
	SortBy      SortType
	OrderBy     OrderType
	Hashtag     *string
	OwnerFilter OwnerFilterType
	Owner       int64

	Page     int64
	PageSize int64
}
