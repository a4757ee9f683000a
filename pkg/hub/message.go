// Package hub fans tracking and calibration events out to websocket
// subscribers. Each subscriber may restrict itself to a set of event types.
package hub

// Message is one JSON-encoded event. Topic is the event type it carries;
// messages without a topic reach every subscriber.
type Message struct {
	Topic string
	Data  []byte
}

// Typed is implemented by events that name their type. Publish uses it as
// the message topic.
type Typed interface {
	EventType() string
}
