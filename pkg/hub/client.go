package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Subscribers only send control frames, so reads are kept small.
	maxMessageSize = 4 * 1024

	// sendBuffer is how many events a subscriber may lag behind before it
	// is dropped. At camera rate this is several seconds of gaze events.
	sendBuffer = 256
)

// Client is one websocket subscriber.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	topics map[string]bool
}

// NewClient registers a subscriber on conn. With topics it only receives
// messages of those types plus untyped ones.
func NewClient(hub *Hub, conn *websocket.Conn, topics ...string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	if len(topics) > 0 {
		c.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			c.topics[t] = true
		}
	}
	hub.attach(c)
	return c
}

// Wants reports whether messages of topic are delivered to c.
func (c *Client) Wants(topic string) bool {
	return c.topics == nil || topic == "" || c.topics[topic]
}

// Run serves the connection until it closes. Call it from the websocket
// handler; it blocks.
func (c *Client) Run() {
	go c.write()
	c.read()
}

// read discards client frames so pongs and close frames are processed,
// and detaches the client when the connection ends.
func (c *Client) read() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// write owns all writes to the connection: queued events and pings. A
// closed queue means the hub dropped or stopped the client.
func (c *Client) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg.Data
		case <-ping.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}
