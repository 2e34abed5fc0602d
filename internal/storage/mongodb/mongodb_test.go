//+build integration

package mongodb

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

var (
	db  *mongo.Database
	ctx = context.Background()
	s   storage.PostStorage
)

func TestMain(m *testing.M) {
	shutdown := setup()

	s = New(db)

	code := m.Run()
	shutdown()
	os.Exit(code)
}

func setup() func() {
	req := testcontainers.ContainerRequest{
		Image:        "mongo:6",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create container")
	}

	if err := c.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to start container")
	}

	host, err := c.Host(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to get host")
	}

	port, err := c.MappedPort(ctx, "27017")
	if err != nil {
		logrus.WithError(err).Fatal("failed to map port")
	}

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(
		fmt.Sprintf("mongodb://%s:%d", host, port.Int()),
	))
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to mongo")
	}

	db = client.Database("cerisonet_test")

	return func() {
		client.Disconnect(ctx) // nolint
		if c != nil {
			c.Terminate(ctx)
		}
	}
}

func cleanup(t *testing.T) {
	_, err := db.Collection("posts").DeleteMany(ctx, bson.M{})
	require.NoError(t, err)
}

func createPost(t *testing.T, p *entities.Post) string {
	id, err := s.CreatePost(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	return id
}

func TestMg_CreateGetPost(t *testing.T) {
	defer cleanup(t)

	id := createPost(t, &entities.Post{
		Body:      "hello",
		CreatedBy: 1,
		Date:      "2024-01-02",
		Hour:      "10:00:00",
		Hashtags:  []string{"tech"},
		Images:    []string{"img.png"},
	})

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, p.ID)
	assert.Equal(t, "hello", p.Body)
	assert.EqualValues(t, 1, p.CreatedBy)
	assert.Equal(t, "2024-01-02", p.Date)
	assert.Equal(t, "10:00:00", p.Hour)
	assert.Zero(t, p.Likes)
	assert.Empty(t, p.LikedBy)
	assert.Empty(t, p.Comments)
	assert.Equal(t, []string{"tech"}, p.Hashtags)
	assert.Equal(t, []string{"img.png"}, p.Images)
	assert.False(t, p.IsShared)
}

func TestMg_GetPost_notFound(t *testing.T) {
	defer cleanup(t)

	for _, id := range []string{"not-an-object-id", "65b2f0a1e4b0c63d9c000000"} {
		p, err := s.GetPost(ctx, id)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func TestMg_ListPosts(t *testing.T) {
	defer cleanup(t)

	createPost(t, &entities.Post{Body: "a", CreatedBy: 1, Date: "2024-01-01", Hour: "10:00:00", Hashtags: []string{"tech"}})
	createPost(t, &entities.Post{Body: "b", CreatedBy: 2, Date: "2024-01-02", Hour: "09:00:00"})
	createPost(t, &entities.Post{Body: "c", CreatedBy: 2, Date: "2024-01-02", Hour: "11:00:00", Hashtags: []string{"tech"}})

	pp, total, err := s.ListPosts(ctx, &storage.ListPostsParams{
		SortBy:   storage.DateSortType,
		OrderBy:  storage.DescendingOrder,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, pp, 3)

	// newest first, the hour breaks the tie within a day
	assert.Equal(t, "c", pp[0].Body)
	assert.Equal(t, "b", pp[1].Body)
	assert.Equal(t, "a", pp[2].Body)
}

func TestMg_ListPosts_hashtag(t *testing.T) {
	defer cleanup(t)

	createPost(t, &entities.Post{Body: "a", Date: "2024-01-01", Hour: "10:00:00", Hashtags: []string{"tech", "go"}})
	createPost(t, &entities.Post{Body: "b", Date: "2024-01-02", Hour: "10:00:00"})

	hashtag := "tech"
	pp, total, err := s.ListPosts(ctx, &storage.ListPostsParams{
		SortBy:   storage.DateSortType,
		OrderBy:  storage.AscendingOrder,
		Hashtag:  &hashtag,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pp, 1)
	assert.Equal(t, "a", pp[0].Body)
}

func TestMg_ListPosts_ownerFilter(t *testing.T) {
	defer cleanup(t)

	createPost(t, &entities.Post{Body: "mine", CreatedBy: 1, Date: "2024-01-01", Hour: "10:00:00"})
	createPost(t, &entities.Post{Body: "theirs", CreatedBy: 2, Date: "2024-01-02", Hour: "10:00:00"})

	pp, _, err := s.ListPosts(ctx, &storage.ListPostsParams{
		SortBy:      storage.DateSortType,
		OrderBy:     storage.AscendingOrder,
		OwnerFilter: storage.MineOwnerFilter,
		Owner:       1,
		Page:        1,
		PageSize:    10,
	})
	require.NoError(t, err)
	require.Len(t, pp, 1)
	assert.Equal(t, "mine", pp[0].Body)

	pp, _, err = s.ListPosts(ctx, &storage.ListPostsParams{
		SortBy:      storage.DateSortType,
		OrderBy:     storage.AscendingOrder,
		OwnerFilter: storage.OthersOwnerFilter,
		Owner:       1,
		Page:        1,
		PageSize:    10,
	})
	require.NoError(t, err)
	require.Len(t, pp, 1)
	assert.Equal(t, "theirs", pp[0].Body)
}

func TestMg_ListPosts_pagination(t *testing.T) {
	defer cleanup(t)

	for i := 0; i < 5; i++ {
		createPost(t, &entities.Post{
			Body: fmt.Sprintf("p%d", i),
			Date: "2024-01-01",
			Hour: fmt.Sprintf("0%d:00:00", i),
		})
	}

	pp, total, err := s.ListPosts(ctx, &storage.ListPostsParams{
		SortBy:   storage.DateSortType,
		OrderBy:  storage.AscendingOrder,
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, pp, 2)
	assert.Equal(t, "p2", pp[0].Body)
	assert.Equal(t, "p3", pp[1].Body)
}

func TestMg_ListPosts_sortByLikes(t *testing.T) {
	defer cleanup(t)

	createPost(t, &entities.Post{Body: "cold", Likes: 1, Date: "2024-01-01", Hour: "10:00:00"})
	createPost(t, &entities.Post{Body: "hot", Likes: 9, Date: "2024-01-01", Hour: "11:00:00"})

	pp, _, err := s.ListPosts(ctx, &storage.ListPostsParams{
		SortBy:   storage.LikesSortType,
		OrderBy:  storage.DescendingOrder,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, pp, 2)
	assert.Equal(t, "hot", pp[0].Body)
}

func TestMg_LikePost(t *testing.T) {
	defer cleanup(t)

	id := createPost(t, &entities.Post{Body: "hello", Date: "2024-01-01", Hour: "10:00:00"})

	require.NoError(t, s.LikePost(ctx, id, 2))

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Likes)
	assert.Equal(t, []int64{2}, p.LikedBy)

	// the second like from the same account changes nothing
	assert.ErrorIs(t, s.LikePost(ctx, id, 2), storage.ErrAlreadyLiked)

	p, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Likes)
	assert.Equal(t, []int64{2}, p.LikedBy)

	// another account still can
	require.NoError(t, s.LikePost(ctx, id, 3))

	p, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.Likes)
}

func TestMg_LikePost_notFound(t *testing.T) {
	defer cleanup(t)

	assert.ErrorIs(t, s.LikePost(ctx, "65b2f0a1e4b0c63d9c000000", 2), storage.ErrNotFound)
}

func TestMg_AddComment(t *testing.T) {
	defer cleanup(t)

	id := createPost(t, &entities.Post{Body: "hello", Date: "2024-01-01", Hour: "10:00:00"})

	c := entities.Comment{
		ID:        "c1",
		CreatedBy: 2,
		Text:      "bravo",
		Date:      "2024-01-02",
		Hour:      "11:00:00",
	}
	require.NoError(t, s.AddComment(ctx, id, &c))

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, c, p.Comments[0])
}

func TestMg_AddComment_notFound(t *testing.T) {
	defer cleanup(t)

	err := s.AddComment(ctx, "65b2f0a1e4b0c63d9c000000", &entities.Comment{ID: "c1"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMg_Ping(t *testing.T) {
	require.NoError(t, s.Ping(ctx))
}
