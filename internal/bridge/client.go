package bridge

import (
	"encoding/json"
	"sync"
)

// wsConn is the subset of *websocket.Conn the bridge writes to.
type wsConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// client is one socket connection. userID stays zero until the connection
// authenticates.
type client struct {
	mu   sync.Mutex
	conn wsConn

	userID int64
	name   string
}

func newClient(conn wsConn) *client {
	return &client{
		conn: conn,
	}
}

// send serializes writes, gorilla allows only one concurrent writer.
func (c *client) send(event string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteJSON(Envelope{
		Event: event,
		Data:  b,
	})
}

func (c *client) sendError(message string) {
	if err := c.send(EventError, errorPayload{Message: message}); err != nil {
		log.WithError(err).Debug("failed to deliver error event")
	}
}

func (c *client) authenticate(id int64, name string) {
	c.userID = id
	c.name = name
}
