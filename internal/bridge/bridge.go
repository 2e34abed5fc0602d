// Package bridge contains the realtime bridge between socket events and the
// persistence layer.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Hchautard/CerisoNet-back/internal/service"
	"github.com/Hchautard/CerisoNet-back/internal/storage"
)

var log = logrus.WithField("layer", "bridge")

// message shown to the initiator when it likes a post twice
const alreadyLikedMessage = "Vous avez déjà liké ce post"

var errInvalidPayload = errors.New("invalid payload")

func errMissingFields(fields ...string) error {
	return fmt.Errorf("%w: %s are required", errInvalidPayload, strings.Join(fields, ", "))
}

// Bridge upgrades HTTP requests to socket connections and dispatches their
// events to the service layer.
type Bridge struct {
	s        service.Service
	presence *Presence
	upgrader websocket.Upgrader
}

// New creates new instance of Bridge.
func New(s service.Service) *Bridge {
	return &Bridge{
		s:        s,
		presence: NewPresence(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler is the socket endpoint. The connection is served until the peer
// goes away; every event runs to completion before the next one is read.
func (b *Bridge) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("failed to upgrade connection")
		return
	}

	c := newClient(conn)

	b.presence.addConn(c)
	// the request context dies with the connection, cleanup needs its own
	defer b.disconnect(context.Background(), c)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("connection closed unexpectedly")
			}
			return
		}

		b.dispatch(r.Context(), c, msg)
	}
}

// dispatch is the failure boundary of the bridge: a handler error surfaces to
// the initiating connection as an error event and never tears anything down.
func (b *Bridge) dispatch(ctx context.Context, c *client, msg []byte) {
	var e Envelope
	if err := json.Unmarshal(msg, &e); err != nil {
		c.sendError("invalid message")
		return
	}

	var err error

	switch e.Event {
	case EventAuthenticate:
		err = b.handleAuthenticate(ctx, c, e.Data)
	case EventGetConnectedUsers:
		err = b.handleGetConnectedUsers(ctx, c)
	case EventLikePost:
		err = b.handleLikePost(ctx, c, e.Data)
	case EventAddComment:
		err = b.handleAddComment(ctx, c, e.Data)
	case EventSharePost:
		err = b.handleSharePost(ctx, c, e.Data)
	default:
		log.WithField("event", e.Event).Debug("skip unknown event")
		return
	}

	if err == nil {
		return
	}

	switch {
	case errors.Is(err, errInvalidPayload):
		c.sendError(err.Error())
	case errors.Is(err, storage.ErrAlreadyLiked):
		c.sendError(alreadyLikedMessage)
	case errors.Is(err, storage.ErrNotFound):
		c.sendError("post introuvable")
	default:
		log.WithField("event", e.Event).WithError(err).Error("failed to handle event")
		c.sendError("internal error")
	}
}

func (b *Bridge) handleAuthenticate(ctx context.Context, c *client, data json.RawMessage) error {
	var p authenticatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errMissingFields("userId")
	}

	// stay unauthenticated when the payload carries no account id
	if p.UserID == 0 {
		return nil
	}

	aa, err := b.s.GetAccounts(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	if len(aa) == 0 {
		return fmt.Errorf("%w: unknown account", errInvalidPayload)
	}

	if err := b.s.SetConnected(ctx, p.UserID, true); err != nil {
		return fmt.Errorf("failed to set connected flag: %w", err)
	}

	c.authenticate(p.UserID, aa[0].DisplayName())
	b.presence.bind(p.UserID, c)

	b.presence.broadcast(EventUserConnected, userPayload{
		ID:   c.userID,
		Name: c.name,
	}, c)

	return b.replyConnectedUsers(ctx, c)
}

func (b *Bridge) handleGetConnectedUsers(ctx context.Context, c *client) error {
	return b.replyConnectedUsers(ctx, c)
}

// replyConnectedUsers sends the connected list queried fresh from the
// credential store. A storage failure degrades to an empty list.
func (b *Bridge) replyConnectedUsers(ctx context.Context, c *client) error {
	out := connectedUsersPayload{Users: []connectedUser{}}

	uu, err := b.s.GetConnectedUsers(ctx)
	if err != nil {
		log.WithError(err).Error("failed to get connected users")
	} else {
		for _, u := range uu {
			out.Users = append(out.Users, connectedUser{
				ID:        u.ID,
				Mail:      u.Mail,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Avatar:    u.Avatar,
			})
		}
	}

	if err := c.send(EventConnectedUsers, out); err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}

	return nil
}

func (b *Bridge) handleLikePost(ctx context.Context, c *client, data json.RawMessage) error {
	var p likePostPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errMissingFields("postId", "userId")
	}

	if err := p.validate(); err != nil {
		return err
	}

	total, err := b.s.LikePost(ctx, p.PostID, p.UserID)
	if err != nil {
		return err
	}

	b.presence.broadcast(EventPostLiked, postLikedPayload{
		PostID:     p.PostID,
		UserID:     p.UserID,
		TotalLikes: total,
	}, nil)

	return nil
}

func (b *Bridge) handleAddComment(ctx context.Context, c *client, data json.RawMessage) error {
	var p addCommentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errMissingFields("postId", "userId", "content")
	}

	if err := p.validate(); err != nil {
		return err
	}

	comment, err := b.s.AddComment(ctx, p.PostID, p.UserID, p.Content)
	if err != nil {
		return err
	}

	b.presence.broadcast(EventNewComment, newCommentPayload{
		PostID:   p.PostID,
		ID:       comment.ID,
		UserID:   comment.CreatedBy,
		UserName: p.UserName,
		Content:  comment.Text,
		Date:     comment.Date,
		Hour:     comment.Hour,
	}, nil)

	return nil
}

func (b *Bridge) handleSharePost(ctx context.Context, c *client, data json.RawMessage) error {
	var p sharePostPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errMissingFields("postId", "userId")
	}

	if err := p.validate(); err != nil {
		return err
	}

	shared, err := b.s.SharePost(ctx, p.PostID, p.UserID)
	if err != nil {
		return err
	}

	b.presence.broadcast(EventPostShared, postSharedPayload{
		PostID:    p.PostID,
		NewPostID: shared.ID,
		UserID:    p.UserID,
		UserName:  p.UserName,
		Date:      shared.Date,
	}, nil)

	if err := c.send(EventShareSuccess, shareSuccessPayload{NewPostID: shared.ID}); err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}

	return nil
}

// disconnect is the Closed transition. A connection that never authenticated
// leaves no trace.
func (b *Bridge) disconnect(ctx context.Context, c *client) {
	defer func() {
		if err := c.conn.Close(); err != nil {
			log.WithError(err).Debug("failed to close connection")
		}
	}()

	bound := b.presence.removeConn(c)
	if bound == nil {
		return
	}

	if err := b.s.SetConnected(ctx, bound.userID, false); err != nil {
		log.WithError(err).Error("failed to reset connected flag")
	}

	b.presence.broadcast(EventUserDisconnected, userPayload{
		ID:   bound.userID,
		Name: bound.name,
	}, c)
}
