// Package mongodb is implementation of PostStorage interface.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

type mg struct {
	posts *mongo.Collection
}

type postDTO struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Body      string             `bson:"body"`
	CreatedBy int64              `bson:"createdBy"`
	Date      string             `bson:"date"`
	Hour      string             `bson:"hour"`
	Likes     int64              `bson:"likes"`
	LikedBy   []int64            `bson:"likedBy"`
	Comments  []commentDTO       `bson:"comments"`
	Hashtags  []string           `bson:"hashtags"`
	Images    []string           `bson:"images"`

	IsShared     bool   `bson:"isShared,omitempty"`
	OriginalPost string `bson:"originalPost,omitempty"`
	SharedFrom   int64  `bson:"sharedFrom,omitempty"`
}

type commentDTO struct {
	ID        string `bson:"id"`
	CreatedBy int64  `bson:"createdBy"`
	Text      string `bson:"text"`
	Date      string `bson:"date"`
	Hour      string `bson:"hour"`
}

// New creates new instance of mg.
func New(db *mongo.Database) storage.PostStorage {
	return mg{
		posts: db.Collection("posts"),
	}
}

func (s mg) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, int64, error) {
	filter := bson.M{}

	if p.Hashtag != nil {
		filter["hashtags"] = *p.Hashtag
	}

	switch p.OwnerFilter {
	case storage.MineOwnerFilter:
		filter["createdBy"] = p.Owner
	case storage.OthersOwnerFilter:
		filter["createdBy"] = bson.M{"$ne": p.Owner}
	}

	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	order := 1
	if p.OrderBy == storage.DescendingOrder {
		order = -1
	}

	// date and hour are zero-padded strings, lexicographic order matches
	// chronological order
	var sort bson.D
	switch p.SortBy {
	case storage.AuthorSortType:
		sort = bson.D{{Key: "createdBy", Value: order}, {Key: "date", Value: order}, {Key: "hour", Value: order}}
	case storage.LikesSortType:
		sort = bson.D{{Key: "likes", Value: order}, {Key: "date", Value: order}, {Key: "hour", Value: order}}
	default:
		sort = bson.D{{Key: "date", Value: order}, {Key: "hour", Value: order}}
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip((p.Page - 1) * p.PageSize).
		SetLimit(p.PageSize)

	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query: %w", err)
	}
	defer cur.Close(ctx)

	var pp []*postDTO
	if err := cur.All(ctx, &pp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode posts: %w", err)
	}

	out := make([]*entities.Post, len(pp))
	for i, v := range pp {
		out[i] = toPost(v)
	}

	return out, total, nil
}

func (s mg) GetPost(ctx context.Context, id string) (*entities.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	var p postDTO
	if err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toPost(&p), nil
}

func (s mg) CreatePost(ctx context.Context, p *entities.Post) (string, error) {
	res, err := s.posts.InsertOne(ctx, toDTO(p))
	if err != nil {
		return "", fmt.Errorf("failed to insert: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}

	return oid.Hex(), nil
}

func (s mg) LikePost(ctx context.Context, id string, likedBy int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	// single conditional update, the membership check and the increment can
	// not race with a concurrent like from the same account
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": oid, "likedBy": bson.M{"$ne": likedBy}},
		bson.M{
			"$inc":      bson.M{"likes": 1},
			"$addToSet": bson.M{"likedBy": likedBy},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if res.MatchedCount > 0 {
		return nil
	}

	// either the post doesn't exist or the account already liked it
	c, err := s.posts.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	if c == 0 {
		return storage.ErrNotFound
	}

	return storage.ErrAlreadyLiked
}

func (s mg) AddComment(ctx context.Context, id string, c *entities.Comment) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"comments": commentDTO{
			ID:        c.ID,
			CreatedBy: c.CreatedBy,
			Text:      c.Text,
			Date:      c.Date,
			Hour:      c.Hour,
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s mg) Ping(ctx context.Context) error {
	if err := s.posts.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}

	return nil
}

func toPost(p *postDTO) *entities.Post {
	out := entities.Post{
		ID:           p.ID.Hex(),
		Body:         p.Body,
		CreatedBy:    p.CreatedBy,
		Date:         p.Date,
		Hour:         p.Hour,
		Likes:        p.Likes,
		LikedBy:      p.LikedBy,
		Hashtags:     p.Hashtags,
		Images:       p.Images,
		IsShared:     p.IsShared,
		OriginalPost: p.OriginalPost,
		SharedFrom:   p.SharedFrom,
	}

	out.Comments = make([]entities.Comment, len(p.Comments))
	for i, v := range p.Comments {
		out.Comments[i] = entities.Comment{
			ID:        v.ID,
			CreatedBy: v.CreatedBy,
			Text:      v.Text,
			Date:      v.Date,
			Hour:      v.Hour,
		}
	}

	return &out
}

func toDTO(p *entities.Post) *postDTO {
	out := postDTO{
		Body:         p.Body,
		CreatedBy:    p.CreatedBy,
		Date:         p.Date,
		Hour:         p.Hour,
		Likes:        p.Likes,
		LikedBy:      p.LikedBy,
		Hashtags:     p.Hashtags,
		Images:       p.Images,
		IsShared:     p.IsShared,
		OriginalPost: p.OriginalPost,
		SharedFrom:   p.SharedFrom,
	}

	if out.LikedBy == nil {
		out.LikedBy = []int64{}
	}

	if out.Hashtags == nil {
		out.Hashtags = []string{}
	}

	if out.Images == nil {
		out.Images = []string{}
	}

	out.Comments = make([]commentDTO, len(p.Comments))
	for i, v := range p.Comments {
		out.Comments[i] = commentDTO{
			ID:        v.ID,
			CreatedBy: v.CreatedBy,
			Text:      v.Text,
			Date:      v.Date,
			Hour:      v.Hour,
		}
	}

	return &out
}
