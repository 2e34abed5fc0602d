package bridge

import (
	"encoding/json"
)

// Client to server events.
const (
	EventAuthenticate      = "authenticate"
	EventGetConnectedUsers = "get-connected-users"
	EventLikePost          = "like-post"
	EventAddComment        = "add-comment"
	EventSharePost         = "share-post"
)

// Server to client events.
const (
	EventConnectedUsers   = "connected-users"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventPostLiked        = "post-liked"
	EventNewComment       = "new-comment"
	EventPostShared       = "post-shared"
	EventShareSuccess     = "share-success"
	EventError            = "error"
)

// Envelope is the wire format of every socket message, in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type authenticatePayload struct {
	UserID int64 `json:"userId"`
}

type likePostPayload struct {
	PostID string `json:"postId"`
	UserID int64  `json:"userId"`
}

func (p likePostPayload) validate() error {
	if p.PostID == "" || p.UserID == 0 {
		return errMissingFields("postId", "userId")
	}

	return nil
}

type addCommentPayload struct {
	PostID   string `json:"postId"`
	UserID   int64  `json:"userId"`
	Content  string `json:"content"`
	UserName string `json:"userName"`
}

func (p addCommentPayload) validate() error {
	if p.PostID == "" || p.UserID == 0 || p.Content == "" {
		return errMissingFields("postId", "userId", "content")
	}

	return nil
}

type sharePostPayload struct {
	PostID   string `json:"postId"`
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
}

func (p sharePostPayload) validate() error {
	if p.PostID == "" || p.UserID == 0 {
		return errMissingFields("postId", "userId")
	}

	return nil
}

type errorPayload struct {
	Message string `json:"message"`
}

type userPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type connectedUsersPayload struct {
	Users []connectedUser `json:"users"`
}

type connectedUser struct {
	ID        int64  `json:"id"`
	Mail      string `json:"mail"`
	FirstName string `json:"prenom"`
	LastName  string `json:"nom"`
	Avatar    string `json:"avatar,omitempty"`
}

type postLikedPayload struct {
	PostID     string `json:"postId"`
	UserID     int64  `json:"userId"`
	TotalLikes int64  `json:"totalLikes"`
}

type newCommentPayload struct {
	PostID   string `json:"postId"`
	ID       string `json:"id"`
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Hour     string `json:"hour"`
}

type postSharedPayload struct {
	PostID    string `json:"postId"`
	NewPostID string `json:"newPostId"`
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	Date      string `json:"date"`
}

type shareSuccessPayload struct {
	NewPostID string `json:"newPostId"`
}
