// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/service"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04:05"
)

type srv struct {
	accounts storage.AccountStorage
	posts    storage.PostStorage
}

// New creates new instance of service.
func New(accounts storage.AccountStorage, posts storage.PostStorage) service.Service {
	return srv{
		accounts: accounts,
		posts:    posts,
	}
}

func (s srv) Login(ctx context.Context, mail, password string) (*entities.Account, error) {
	a, err := s.accounts.GetAccountByMail(ctx, mail)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, service.ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	now := time.Now().UTC()

	if err := s.accounts.SetConnected(ctx, a.ID, true); err != nil {
		return nil, fmt.Errorf("failed to set connected flag: %w", err)
	}

	if err := s.accounts.SetLastLogin(ctx, a.ID, now); err != nil {
		return nil, fmt.Errorf("failed to set last login: %w", err)
	}

	a.Connected = true
	a.LastLogin = now

	return a, nil
}

func (s srv) Logout(ctx context.Context, id int64) error {
	if err := s.accounts.SetConnected(ctx, id, false); err != nil {
		return fmt.Errorf("failed to set connected flag: %w", err)
	}

	return nil
}

func (s srv) GetAccounts(ctx context.Context, id ...int64) ([]*entities.Account, error) {
	aa, err := s.accounts.GetAccounts(ctx, id...)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	return aa, nil
}

func (s srv) GetConnectedUsers(ctx context.Context) ([]*entities.ConnectedUser, error) {
	uu, err := s.accounts.ListConnected(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected accounts: %w", err)
	}

	return uu, nil
}

func (s srv) SetConnected(ctx context.Context, id int64, connected bool) error {
	if err := s.accounts.SetConnected(ctx, id, connected); err != nil {
		return fmt.Errorf("failed to set connected flag: %w", err)
	}

	return nil
}

func (s srv) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, int64, error) {
	posts, total, err := s.posts.ListPosts(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, total, nil
}

func (s srv) LikePost(ctx context.Context, postID string, userID int64) (int64, error) {
	if err := s.posts.LikePost(ctx, postID, userID); err != nil {
		return 0, fmt.Errorf("failed to like post: %w", err)
	}

	// re-read to report the broadcast total
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to get liked post: %w", err)
	}

	return p.Likes, nil
}

func (s srv) AddComment(ctx context.Context, postID string, userID int64, text string) (*entities.Comment, error) {
	now := time.Now()

	c := entities.Comment{
		ID:        uuid.NewString(),
		CreatedBy: userID,
		Text:      text,
		Date:      now.Format(dateLayout),
		Hour:      now.Format(hourLayout),
	}

	if err := s.posts.AddComment(ctx, postID, &c); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return &c, nil
}

func (s srv) SharePost(ctx context.Context, postID string, userID int64) (*entities.Post, error) {
	src, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get source post: %w", err)
	}

	now := time.Now()

	shared := entities.Post{
		Body:      src.Body,
		CreatedBy: userID,
		Date:      now.Format(dateLayout),
		Hour:      now.Format(hourLayout),
		Likes:     0,
		LikedBy:   []int64{},
		Comments:  []entities.Comment{},
		Hashtags:  src.Hashtags,
		Images:    src.Images,

		IsShared:     true,
		OriginalPost: src.ID,
		SharedFrom:   src.CreatedBy,
	}

	id, err := s.posts.CreatePost(ctx, &shared)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared post: %w", err)
	}

	shared.ID = id

	return &shared, nil
}
