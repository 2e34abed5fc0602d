// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrInvalidCredentials returned when the password doesn't match the stored digest.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service ...
type Service interface {
	Login(ctx context.Context, mail, password string) (*entities.Account, error)
	Logout(ctx context.Context, id int64) error

	GetAccounts(ctx context.Context, id ...int64) ([]*entities.Account, error)
	GetConnectedUsers(ctx context.Context) ([]*entities.ConnectedUser, error)
	SetConnected(ctx context.Context, id int64, connected bool) error

	ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, int64, error)
	// LikePost registers a like and returns the post's updated like total.
	LikePost(ctx context.Context, postID string, userID int64) (int64, error)
	AddComment(ctx context.Context, postID string, userID int64, text string) (*entities.Comment, error)
	// SharePost copies the source post's content into a new post with share
	// lineage fields and fresh interaction state. The original is not touched.
	SharePost(ctx context.Context, postID string, userID int64) (*entities.Post, error)
}
