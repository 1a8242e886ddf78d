package diagram

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidID is returned when a node ID is empty.
	ErrInvalidID = errors.New("id must not be empty")

	// ErrDuplicateID is returned by [Registry.Add] when a node with the same
	// ID is already registered.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound is returned for unknown node, anchor or connection
	// references.
	ErrNotFound = errors.New("not found")
)

// Positionable is the geometry capability the editor needs from a node: a
// readable and writable top-left position. Hosts that keep positions in their
// own visual objects can mirror them through this interface.
type Positionable interface {
	Position() (x, y float64)
	SetPosition(x, y float64)
}

// Node is a box in the diagram. X and Y are the top-left corner in diagram
// coordinates.
type Node struct {
	ID          string
	Label       string
	Description string
	X, Y        float64
}

// Position returns the top-left corner of the node.
func (n *Node) Position() (float64, float64) { return n.X, n.Y }

// SetPosition moves the node. No bounds are applied.
func (n *Node) SetPosition(x, y float64) { n.X, n.Y = x, y }

var _ Positionable = (*Node)(nil)

// Registry owns the nodes of a diagram. Nodes are kept in insertion order so
// that iteration (and therefore export) is deterministic.
//
// The zero value is not usable; registries are created by [New].
type Registry struct {
	nodes map[string]*Node
	order []string
	bus   *bus

	// Set by the editor so that anchors follow node lifetime and removals
	// cascade into the connection manager.
	afterAdd     func(id string)
	beforeRemove func(id string)
}

func newRegistry(b *bus) *Registry {
	return &Registry{nodes: make(map[string]*Node), bus: b}
}

// Add registers a node. Returns ErrInvalidID for an empty ID and
// ErrDuplicateID if the ID is already in use.
func (r *Registry) Add(n Node) error {
	if n.ID == "" {
		return ErrInvalidID
	}
	if _, exists := r.nodes[n.ID]; exists {
		return fmt.Errorf("node %s: %w", n.ID, ErrDuplicateID)
	}
	node := n
	r.nodes[n.ID] = &node
	r.order = append(r.order, n.ID)
	if r.afterAdd != nil {
		r.afterAdd(n.ID)
	}
	r.bus.emit(Event{Kind: EventNodeAdded, NodeID: n.ID})
	return nil
}

// Get returns a copy of the node with the given ID.
func (r *Registry) Get(id string) (Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return *n, nil
}

// Has reports whether a node with the given ID is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.nodes[id]
	return ok
}

// Move sets the node's position. It is a pure state update; the only side
// effect is an [EventNodeMoved] notification used for redraws.
func (r *Registry) Move(id string, x, y float64) error {
	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.SetPosition(x, y)
	r.bus.emit(Event{Kind: EventNodeMoved, NodeID: id})
	return nil
}

// Update replaces the label and description of a node.
func (r *Registry) Update(id, label, description string) error {
	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.Label = label
	n.Description = description
	r.bus.emit(Event{Kind: EventNodeUpdated, NodeID: id})
	return nil
}

// Remove deletes a node. Every connection touching the node is detached
// first and the node's anchors are dropped with it.
func (r *Registry) Remove(id string) error {
	if _, ok := r.nodes[id]; !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if r.beforeRemove != nil {
		r.beforeRemove(id)
	}
	delete(r.nodes, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	r.bus.emit(Event{Kind: EventNodeRemoved, NodeID: id})
	return nil
}

// Nodes returns copies of all nodes in insertion order.
func (r *Registry) Nodes() []Node {
	out := make([]Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.nodes[id])
	}
	return out
}

// IDs returns the node IDs in insertion order.
func (r *Registry) IDs() []string { return slices.Clone(r.order) }

// Len returns the number of registered nodes.
func (r *Registry) Len() int { return len(r.nodes) }
