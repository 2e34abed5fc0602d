package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi"
	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
	"github.com/Hchautard/CerisoNet-back/internal/service"
	"github.com/Hchautard/CerisoNet-back/internal/service/mock"
	"github.com/Hchautard/CerisoNet-back/internal/session"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

const testCookie = "cerisonet.sid"

func testSessions(t *testing.T) *session.Store {
	mr := miniredis.RunT(t)

	return session.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
}

func setupTestRouter(t *testing.T, s service.Service) (chi.Router, *session.Store) {
	sessions := testSessions(t)

	r := chi.NewRouter()
	SetupRouter(s, sessions, Config{
		CookieName: testCookie,
		CookieTTL:  time.Hour,
	}, r)

	return r, sessions
}

func authenticate(t *testing.T, r *http.Request, sessions *session.Store, sess *session.Session) {
	token, err := sessions.Create(context.Background(), sess)
	require.NoError(t, err)

	r.AddCookie(&http.Cookie{Name: testCookie, Value: token})
}

func Test_login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().Login(gomock.Any(), "jean@cerisonet.fr", "secret").Return(&entities.Account{
		ID:        1,
		Mail:      "jean@cerisonet.fr",
		FirstName: "Jean",
		LastName:  "Dupont",
		Avatar:    "jean.png",
		Connected: true,
		LastLogin: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}, nil)

	router, _ := setupTestRouter(t, s)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"mail":"jean@cerisonet.fr","password":"secret"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
{
	"success": true,
	"user": {
		"id": 1,
		"mail": "jean@cerisonet.fr",
		"prenom": "Jean",
		"nom": "Dupont",
		"avatar": "jean.png",
		"lastLogin": "2024-01-02 10:00:00"
	}
}
	`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
}

func Test_login_missingFields(t *testing.T) {
	tt := []struct {
		name string
		body string
	}{
		{
			name: "no mail",
			body: `{"password":"secret"}`,
		},
		{
			name: "no password",
			body: `{"mail":"jean@cerisonet.fr"}`,
		},
		{
			name: "invalid json",
			body: `not json`,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			router, _ := setupTestRouter(t, mock.NewMockService(ctrl))

			r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func Test_login_invalidCredentials(t *testing.T) {
	tt := []struct {
		name string
		err  error
	}{
		{
			name: "unknown mail",
			err:  storage.ErrNotFound,
		},
		{
			name: "wrong password",
			err:  service.ErrInvalidCredentials,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			s := mock.NewMockService(ctrl)

			s.EXPECT().Login(gomock.Any(), "jean@cerisonet.fr", "wrong").Return(nil, tc.err)

			router, _ := setupTestRouter(t, s)

			r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"mail":"jean@cerisonet.fr","password":"wrong"}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			// no session must be established on a failed login
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func Test_logout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().Logout(gomock.Any(), int64(1)).Return(nil)

	router, sessions := setupTestRouter(t, s)

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	authenticate(t, r, sessions, &session.Session{UserID: 1, Mail: "jean@cerisonet.fr"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func Test_logout_withoutSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no service call is expected, logging out twice is a no-op
	router, _ := setupTestRouter(t, mock.NewMockService(ctrl))

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func Test_getUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, sessions := setupTestRouter(t, mock.NewMockService(ctrl))

	r := httptest.NewRequest(http.MethodGet, "/user", nil)
	authenticate(t, r, sessions, &session.Session{
		UserID:    1,
		Mail:      "jean@cerisonet.fr",
		FirstName: "Jean",
		LastName:  "Dupont",
		LastLogin: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
{
	"success": true,
	"user": {
		"id": 1,
		"mail": "jean@cerisonet.fr",
		"prenom": "Jean",
		"nom": "Dupont",
		"lastLogin": "2024-01-02 10:00:00"
	}
}
	`, w.Body.String())
}

func Test_authenticationRequired(t *testing.T) {
	for _, path := range []string{"/user", "/users/connected", "/posts"} {
		t.Run(path, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			router, _ := setupTestRouter(t, mock.NewMockService(ctrl))

			r := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func Test_getConnectedUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().GetConnectedUsers(gomock.Any()).Return([]*entities.ConnectedUser{
		{
			ID:        1,
			Mail:      "jean@cerisonet.fr",
			FirstName: "Jean",
			LastName:  "Dupont",
			Avatar:    "jean.png",
		},
	}, nil)

	router, sessions := setupTestRouter(t, s)

	r := httptest.NewRequest(http.MethodGet, "/users/connected", nil)
	authenticate(t, r, sessions, &session.Session{UserID: 1})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
{
	"success": true,
	"connectedUsers": [
		{"id":1,"mail":"jean@cerisonet.fr","prenom":"Jean","nom":"Dupont","avatar":"jean.png"}
	]
}
	`, w.Body.String())
}

func Test_listPosts(t *testing.T) {
	query := "sortBy=likes&sortDirection=asc&hashtag=tech&filterByOwner=mine&userId=7&page=2&pageSize=5"

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *storage.ListPostsParams) {
		assert.Equal(t, storage.LikesSortType, p.SortBy)
		assert.Equal(t, storage.AscendingOrder, p.OrderBy)
		assert.Equal(t, "tech", *p.Hashtag)
		assert.Equal(t, storage.MineOwnerFilter, p.OwnerFilter)
		assert.EqualValues(t, 7, p.Owner)
		assert.EqualValues(t, 2, p.Page)
		assert.EqualValues(t, 5, p.PageSize)
	}).Return([]*entities.Post{
		{
			ID:        "p1",
			Body:      "hello",
			CreatedBy: 1,
			Date:      "2024-01-02",
			Hour:      "10:00:00",
			Likes:     2,
			LikedBy:   []int64{2, 3},
			Comments: []entities.Comment{
				{
					ID:        "c1",
					CreatedBy: 2,
					Text:      "nice",
					Date:      "2024-01-02",
					Hour:      "11:00:00",
				},
			},
			Hashtags: []string{"tech"},
		},
		{
			ID:           "p2",
			Body:         "hello",
			CreatedBy:    2,
			Date:         "2024-01-03",
			Hour:         "09:30:00",
			Hashtags:     []string{"tech"},
			IsShared:     true,
			OriginalPost: "p1",
			SharedFrom:   1,
		},
	}, int64(7), nil)

	s.EXPECT().GetAccounts(gomock.Any(), int64(1), int64(2)).Return([]*entities.Account{
		{
			ID:        1,
			FirstName: "Jean",
			LastName:  "Dupont",
			Avatar:    "jean.png",
		},
		{
			ID:        2,
			FirstName: "Marie",
			LastName:  "Curie",
			Avatar:    "marie.png",
		},
	}, nil)

	router, sessions := setupTestRouter(t, s)

	r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts?%s", query), nil)
	authenticate(t, r, sessions, &session.Session{UserID: 7})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `
{
	"success": true,
	"posts": [
		{
			"id": "p1",
			"body": "hello",
			"createdBy": 1,
			"authorName": "Jean Dupont",
			"authorAvatar": "jean.png",
			"date": "2024-01-02",
			"hour": "10:00:00",
			"likes": 2,
			"likedBy": [2, 3],
			"comments": [
				{
					"id": "c1",
					"createdBy": 2,
					"authorName": "Marie Curie",
					"authorAvatar": "marie.png",
					"text": "nice",
					"date": "2024-01-02",
					"hour": "11:00:00"
				}
			],
			"hashtags": ["tech"],
			"images": []
		},
		{
			"id": "p2",
			"body": "hello",
			"createdBy": 2,
			"authorName": "Marie Curie",
			"authorAvatar": "marie.png",
			"date": "2024-01-03",
			"hour": "09:30:00",
			"likes": 0,
			"likedBy": [],
			"comments": [],
			"hashtags": ["tech"],
			"images": [],
			"isShared": true,
			"originalPost": "p1",
			"sharedFrom": 1,
			"sharedFromName": "Jean Dupont"
		}
	],
	"total": 7,
	"page": 2,
	"pageSize": 5,
	"totalPages": 2
}
	`, w.Body.String())
}

func Test_listPosts_unknownAuthor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).Return([]*entities.Post{
		{
			ID:        "p1",
			Body:      "orphan",
			CreatedBy: 42,
			Date:      "2024-01-02",
			Hour:      "10:00:00",
		},
	}, int64(1), nil)

	s.EXPECT().GetAccounts(gomock.Any(), int64(42)).Return(nil, nil)

	router, sessions := setupTestRouter(t, s)

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	authenticate(t, r, sessions, &session.Session{UserID: 1})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Utilisateur inconnu")
}

func Test_listPosts_invalidParams(t *testing.T) {
	tt := []struct {
		name  string
		query string
	}{
		{"bad sortBy", "sortBy=pdv"},
		{"bad sortDirection", "sortDirection=up"},
		{"bad filterByOwner", "filterByOwner=friends"},
		{"bad page", "page=0"},
		{"bad pageSize", "pageSize=-1"},
		{"pageSize too big", "pageSize=1000"},
		{"bad userId", "userId=abc"},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			router, sessions := setupTestRouter(t, mock.NewMockService(ctrl))

			r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts?%s", tc.query), nil)
			authenticate(t, r, sessions, &session.Session{UserID: 1})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func Test_totalPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	s := mock.NewMockService(ctrl)

	// 25 posts with pageSize 10 make 3 pages, the last one holds 5
	posts := make([]*entities.Post, 5)
	for i := range posts {
		posts[i] = &entities.Post{
			ID:        fmt.Sprintf("p%d", i),
			Body:      "body",
			CreatedBy: 1,
			Date:      "2024-01-02",
			Hour:      "10:00:00",
		}
	}

	s.EXPECT().ListPosts(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, p *storage.ListPostsParams) {
			assert.EqualValues(t, 3, p.Page)
			assert.EqualValues(t, 10, p.PageSize)
		}).Return(posts, int64(25), nil)
	s.EXPECT().GetAccounts(gomock.Any(), int64(1)).Return(nil, nil)

	router, sessions := setupTestRouter(t, s)

	r := httptest.NewRequest(http.MethodGet, "/posts?page=3", nil)
	authenticate(t, r, sessions, &session.Session{UserID: 1})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalPages":3`)
}

func Test_getError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _ := setupTestRouter(t, mock.NewMockService(ctrl))

	r := httptest.NewRequest(http.MethodGet, "/error", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal error"}`, w.Body.String())
}
