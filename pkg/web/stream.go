package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// EventsPath is the websocket route of the live event stream.
const EventsPath = "/ws/events"

// StreamEvent is one message from the event stream. Type is decoded eagerly,
// the full payload is kept for consumers that know its shape.
type StreamEvent struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// Stream is a client of the live event stream.
type Stream struct {
	ws *websocket.Conn
}

// Dial connects to the event stream of the server at addr (host:port or a
// ws:// URL). With types the server only sends events of those types.
func Dial(ctx context.Context, addr string, types ...string) (*Stream, error) {
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "ws", Host: addr}
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = EventsPath
	}
	if len(types) > 0 {
		q := u.Query()
		q.Set("types", strings.Join(types, ","))
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &Stream{ws: ws}, nil
}

// Next blocks until the next JSON event arrives. Binary messages are skipped.
func (s *Stream) Next() (StreamEvent, error) {
	for {
		kind, data, err := s.ws.ReadMessage()
		if err != nil {
			return StreamEvent{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var ev StreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return StreamEvent{}, fmt.Errorf("decode event: %w", err)
		}
		ev.Raw = data
		return ev, nil
	}
}

// Tail calls fn for every event until ctx is cancelled or the connection
// fails. Cancellation returns nil.
func (s *Stream) Tail(ctx context.Context, fn func(StreamEvent)) error {
	stop := context.AfterFunc(ctx, func() { s.ws.Close() })
	defer stop()

	for {
		ev, err := s.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(ev)
	}
}

// Close sends a close frame and closes the connection.
func (s *Stream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.ws.Close()
}
