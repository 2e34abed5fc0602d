package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Hchautard/CerisoNet-back/internal/entities"
)

const defaultPageSize = 10
const maxPageSize = 100

const unknownUserName = "Utilisateur inconnu"

// Error ...
type Error struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// User ...
type User struct {
	ID        int64  `json:"id"`
	Mail      string `json:"mail"`
	FirstName string `json:"prenom"`
	LastName  string `json:"nom"`
	Avatar    string `json:"avatar,omitempty"`
	LastLogin string `json:"lastLogin,omitempty"`
}

// LoginResponse ...
type LoginResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// LogoutResponse ...
type LogoutResponse struct {
	Success bool `json:"success"`
}

// ConnectedUsersResponse ...
type ConnectedUsersResponse struct {
	Success        bool   `json:"success"`
	ConnectedUsers []User `json:"connectedUsers"`
}

// ListPostsResponse ...
type ListPostsResponse struct {
	Success    bool   `json:"success"`
	Posts      []Post `json:"posts"`
	Total      int64  `json:"total"`
	Page       int64  `json:"page"`
	PageSize   int64  `json:"pageSize"`
	TotalPages int64  `json:"totalPages"`
}

// Post is a feed entry enriched with display data.
type Post struct {
	ID           string    `json:"id"`
	Body         string    `json:"body"`
	CreatedBy    int64     `json:"createdBy"`
	AuthorName   string    `json:"authorName"`
	AuthorAvatar string    `json:"authorAvatar,omitempty"`
	Date         string    `json:"date"`
	Hour         string    `json:"hour"`
	Likes        int64     `json:"likes"`
	LikedBy      []int64   `json:"likedBy"`
	Comments     []Comment `json:"comments"`
	Hashtags     []string  `json:"hashtags"`
	Images       []string  `json:"images"`

	IsShared       bool   `json:"isShared,omitempty"`
	OriginalPost   string `json:"originalPost,omitempty"`
	SharedFrom     int64  `json:"sharedFrom,omitempty"`
	SharedFromName string `json:"sharedFromName,omitempty"`
}

// Comment ...
type Comment struct {
	ID           string `json:"id"`
	CreatedBy    int64  `json:"createdBy"`
	AuthorName   string `json:"authorName"`
	AuthorAvatar string `json:"authorAvatar,omitempty"`
	Text         string `json:"text"`
	Date         string `json:"date"`
	Hour         string `json:"hour"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Error{Message: message})
}

func toAPIUser(a *entities.Account) User {
	out := User{
		ID:        a.ID,
		Mail:      a.Mail,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Avatar:    a.Avatar,
	}

	if !a.LastLogin.IsZero() {
		out.LastLogin = a.LastLogin.UTC().Format("2006-01-02 15:04:05")
	}

	return out
}

func extractAccountIDsFromPosts(pp []*entities.Post) []int64 {
	out := make([]int64, 0, len(pp))
	m := make(map[int64]struct{}, len(pp))

	add := func(id int64) {
		if _, ok := m[id]; !ok && id != 0 {
			m[id] = struct{}{}
			out = append(out, id)
		}
	}

	for _, p := range pp {
		add(p.CreatedBy)
		add(p.SharedFrom)

		for _, c := range p.Comments {
			add(c.CreatedBy)
		}
	}

	return out
}

func newListPostsResponse(pp []*entities.Post, accounts []*entities.Account, total, page, pageSize int64) ListPostsResponse {
	names := make(map[int64]*entities.Account, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a
	}

	name := func(id int64) string {
		if a, ok := names[id]; ok {
			return a.DisplayName()
		}

		return unknownUserName
	}

	avatar := func(id int64) string {
		if a, ok := names[id]; ok {
			return a.Avatar
		}

		return ""
	}

	out := ListPostsResponse{
		Success:    true,
		Posts:      make([]Post, len(pp)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	for i, p := range pp {
		post := Post{
			ID:           p.ID,
			Body:         p.Body,
			CreatedBy:    p.CreatedBy,
			AuthorName:   name(p.CreatedBy),
			AuthorAvatar: avatar(p.CreatedBy),
			Date:         p.Date,
			Hour:         p.Hour,
			Likes:        p.Likes,
			LikedBy:      p.LikedBy,
			Comments:     make([]Comment, len(p.Comments)),
			Hashtags:     p.Hashtags,
			Images:       p.Images,
			IsShared:     p.IsShared,
			OriginalPost: p.OriginalPost,
			SharedFrom:   p.SharedFrom,
		}

		if post.LikedBy == nil {
			post.LikedBy = []int64{}
		}

		if post.Hashtags == nil {
			post.Hashtags = []string{}
		}

		if post.Images == nil {
			post.Images = []string{}
		}

		if p.IsShared {
			post.SharedFromName = name(p.SharedFrom)
		}

		for j, c := range p.Comments {
			post.Comments[j] = Comment{
				ID:           c.ID,
				CreatedBy:    c.CreatedBy,
				AuthorName:   name(c.CreatedBy),
				AuthorAvatar: avatar(c.CreatedBy),
				Text:         c.Text,
				Date:         c.Date,
				Hour:         c.Hour,
			}
		}

		out.Posts[i] = post
	}

	return out
}
