package diagram

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/checklistapp/diagram/pkg/observability"
)

var (
	// ErrSourceDisabled is returned by [ConnectionManager.Connect] when the
	// source anchor already originates an active connection.
	ErrSourceDisabled = errors.New("source anchor already has an outgoing connection")

	// ErrSelfLoop is returned when both anchors belong to the same node and
	// [Policy.AllowSelfLoops] is not set.
	ErrSelfLoop = errors.New("self loop rejected")

	// ErrDuplicateConnection is returned when [Policy.RejectDuplicates] is set
	// and the ordered node pair is already connected.
	ErrDuplicateConnection = errors.New("duplicate connection")

	// ErrDetachForbidden is returned by [ConnectionManager.CanDetach] when
	// [Policy.ProtectIncoming] is set and the source anchor has incoming
	// connections.
	ErrDetachForbidden = errors.New("detach forbidden while anchor has incoming connections")
)

// Direction selects incoming or outgoing connections of an anchor.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Connection is a directed, labeled edge between two anchors.
type Connection struct {
	ID     string
	Source AnchorRef
	Target AnchorRef
	Label  string
}

// Policy holds optional connection rules. The zero value is the permissive
// default: duplicates allowed, detach always permitted, self loops rejected.
type Policy struct {
	// AllowSelfLoops permits connections between two anchors of one node.
	AllowSelfLoops bool

	// RejectDuplicates refuses a connection when an active connection already
	// joins the same source node to the same target node. The outgoing lock
	// already makes duplicate anchor pairs impossible, so the comparison is
	// made at node granularity.
	RejectDuplicates bool

	// ProtectIncoming forbids starting a detach gesture on a connection whose
	// source anchor also receives connections.
	ProtectIncoming bool
}

// ConnectionManager owns the active connections and is the only writer of
// anchor source enablement.
type ConnectionManager struct {
	anchors  *AnchorSet
	conns    map[string]*Connection
	order    []string
	outgoing map[AnchorRef][]string // anchor -> connection IDs it originates
	incoming map[AnchorRef][]string // anchor -> connection IDs it receives
	policy   Policy
	newID    func() string
	bus      *bus
	logger   *log.Logger
}

func newConnectionManager(anchors *AnchorSet, policy Policy, newID func() string, b *bus, logger *log.Logger) *ConnectionManager {
	return &ConnectionManager{
		anchors:  anchors,
		conns:    make(map[string]*Connection),
		outgoing: make(map[AnchorRef][]string),
		incoming: make(map[AnchorRef][]string),
		policy:   policy,
		newID:    newID,
		bus:      b,
		logger:   logger,
	}
}

// Policy returns the active policy.
func (m *ConnectionManager) Policy() Policy { return m.policy }

// Connect creates a connection from source to target.
//
// The checks run in this order: both anchors must exist (ErrNotFound), the
// anchors must belong to different nodes (ErrSelfLoop), the source anchor
// must not already originate a connection (ErrSourceDisabled), and, when
// enabled, the node pair must not already be connected
// (ErrDuplicateConnection). On success the source anchor is locked and an
// [EventConnected] is emitted before Connect returns.
func (m *ConnectionManager) Connect(source, target AnchorRef, label string) (Connection, error) {
	c, err := m.connect(source, target, label)
	if err != nil {
		observability.Editor().OnReject("connect", err)
		m.logger.Debug("connect rejected", "source", source, "target", target, "err", err)
		return Connection{}, err
	}
	observability.Editor().OnConnect(source.String(), target.String())
	m.logger.Debug("connected", "id", c.ID, "source", source, "target", target, "label", label)
	m.bus.emit(Event{Kind: EventConnected, Connection: c})
	return c, nil
}

func (m *ConnectionManager) connect(source, target AnchorRef, label string) (Connection, error) {
	src, err := m.anchors.Get(source)
	if err != nil {
		return Connection{}, fmt.Errorf("connect source: %w", err)
	}
	if _, err := m.anchors.Get(target); err != nil {
		return Connection{}, fmt.Errorf("connect target: %w", err)
	}
	if source.NodeID == target.NodeID && !m.policy.AllowSelfLoops {
		return Connection{}, fmt.Errorf("connect %s -> %s: %w", source, target, ErrSelfLoop)
	}
	if !src.SourceEnabled {
		return Connection{}, fmt.Errorf("connect %s -> %s: %w", source, target, ErrSourceDisabled)
	}
	if m.policy.RejectDuplicates && m.linked(source.NodeID, target.NodeID) {
		return Connection{}, fmt.Errorf("connect %s -> %s: %w", source, target, ErrDuplicateConnection)
	}

	c := &Connection{ID: m.newID(), Source: source, Target: target, Label: label}
	if _, exists := m.conns[c.ID]; exists {
		return Connection{}, fmt.Errorf("connection %s: %w", c.ID, ErrDuplicateID)
	}
	m.conns[c.ID] = c
	m.order = append(m.order, c.ID)
	m.outgoing[source] = append(m.outgoing[source], c.ID)
	m.incoming[target] = append(m.incoming[target], c.ID)
	if err := m.anchors.setSourceEnabled(source, false); err != nil {
		return Connection{}, err
	}
	return *c, nil
}

// Detach removes a connection and re-opens its source anchor. Emits
// [EventDetached].
func (m *ConnectionManager) Detach(id string) error {
	c, ok := m.conns[id]
	if !ok {
		return fmt.Errorf("connection %s: %w", id, ErrNotFound)
	}
	removed := *c
	delete(m.conns, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	m.outgoing[c.Source] = removeID(m.outgoing[c.Source], id)
	m.incoming[c.Target] = removeID(m.incoming[c.Target], id)
	if len(m.outgoing[c.Source]) == 0 {
		delete(m.outgoing, c.Source)
		// The anchor may already be gone when its node is being removed.
		_ = m.anchors.setSourceEnabled(c.Source, true)
	}
	if len(m.incoming[c.Target]) == 0 {
		delete(m.incoming, c.Target)
	}

	observability.Editor().OnDetach(removed.Source.String(), removed.Target.String())
	m.logger.Debug("detached", "id", id, "source", removed.Source, "target", removed.Target)
	m.bus.emit(Event{Kind: EventDetached, Connection: removed})
	return nil
}

// CanDetach reports whether a detach gesture may start on the connection.
// Detaching is always permitted unless [Policy.ProtectIncoming] is set.
func (m *ConnectionManager) CanDetach(id string) error {
	c, ok := m.conns[id]
	if !ok {
		return fmt.Errorf("connection %s: %w", id, ErrNotFound)
	}
	if m.policy.ProtectIncoming && len(m.incoming[c.Source]) > 0 {
		err := fmt.Errorf("detach %s: %w", id, ErrDetachForbidden)
		observability.Editor().OnReject("detach", err)
		return err
	}
	return nil
}

// ConnectionsOf returns the connections entering or leaving an anchor, in
// creation order.
func (m *ConnectionManager) ConnectionsOf(ref AnchorRef, dir Direction) []Connection {
	ids := m.outgoing[ref]
	if dir == Incoming {
		ids = m.incoming[ref]
	}
	out := make([]Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.conns[id])
	}
	return out
}

// Get returns the connection with the given ID.
func (m *ConnectionManager) Get(id string) (Connection, error) {
	c, ok := m.conns[id]
	if !ok {
		return Connection{}, fmt.Errorf("connection %s: %w", id, ErrNotFound)
	}
	return *c, nil
}

// Connections returns all active connections in creation order.
func (m *ConnectionManager) Connections() []Connection {
	out := make([]Connection, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.conns[id])
	}
	return out
}

// Len returns the number of active connections.
func (m *ConnectionManager) Len() int { return len(m.conns) }

// detachNode removes every connection that touches the node.
func (m *ConnectionManager) detachNode(nodeID string) {
	for _, c := range m.Connections() {
		if c.Source.NodeID == nodeID || c.Target.NodeID == nodeID {
			_ = m.Detach(c.ID)
		}
	}
}

func (m *ConnectionManager) linked(from, to string) bool {
	for _, c := range m.conns {
		if c.Source.NodeID == from && c.Target.NodeID == to {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
