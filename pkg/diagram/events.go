package diagram

import "slices"

// EventKind classifies editor notifications.
type EventKind int

const (
	// EventConnected is emitted after a connection has been created.
	EventConnected EventKind = iota + 1
	// EventDetached is emitted after a connection has been removed.
	EventDetached
	EventNodeAdded
	EventNodeMoved
	EventNodeUpdated
	EventNodeRemoved
)

var eventNames = map[EventKind]string{
	EventConnected:   "connected",
	EventDetached:    "detached",
	EventNodeAdded:   "node-added",
	EventNodeMoved:   "node-moved",
	EventNodeUpdated: "node-updated",
	EventNodeRemoved: "node-removed",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is a notification about a completed mutation. Connection is set for
// EventConnected and EventDetached; NodeID is set for node events.
type Event struct {
	Kind       EventKind
	Connection Connection
	NodeID     string
}

// Listener receives events synchronously, in mutation order.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// bus fans events out to subscribers. Delivery is synchronous and never
// retried.
type bus struct {
	subs   []subscription
	nextID int
}

func (b *bus) subscribe(fn Listener) func() {
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

func (b *bus) emit(e Event) {
	if b == nil {
		return
	}
	// Listeners may unsubscribe while being notified.
	for _, s := range slices.Clone(b.subs) {
		s.fn(e)
	}
}
