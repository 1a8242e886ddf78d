package diagram

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrInvariant is wrapped by every violation reported by
// [Editor.CheckInvariants].
var ErrInvariant = errors.New("invariant violated")

// Editor owns the node registry, anchor set and connection manager of one
// diagram surface. Create one per surface with [New] and hand it to the
// gesture controller; there is no shared global instance.
type Editor struct {
	nodes   *Registry
	anchors *AnchorSet
	conns   *ConnectionManager
	geom    Geometry
	bus     *bus
	logger  *log.Logger
}

type options struct {
	policy Policy
	geom   Geometry
	logger *log.Logger
	newID  func() string
}

// Option configures an [Editor].
type Option func(*options)

// WithPolicy sets the connection policy.
func WithPolicy(p Policy) Option { return func(o *options) { o.policy = p } }

// WithGeometry sets the box size and anchor grab radius.
func WithGeometry(g Geometry) Option { return func(o *options) { o.geom = g } }

// WithLogger sets the logger used for debug tracing of mutations.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithIDGenerator replaces the random UUID connection IDs, mainly so tests
// can produce stable output.
func WithIDGenerator(fn func() string) Option { return func(o *options) { o.newID = fn } }

// New creates an empty editor.
func New(opts ...Option) *Editor {
	o := options{geom: DefaultGeometry(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}

	b := &bus{}
	anchors := newAnchorSet()
	e := &Editor{
		nodes:   newRegistry(b),
		anchors: anchors,
		conns:   newConnectionManager(anchors, o.policy, o.newID, b, o.logger),
		geom:    o.geom,
		bus:     b,
		logger:  o.logger,
	}
	e.nodes.afterAdd = func(id string) { _ = e.anchors.Initialize(id) }
	e.nodes.beforeRemove = func(id string) {
		e.conns.detachNode(id)
		e.anchors.drop(id)
	}
	return e
}

// Nodes returns the node registry.
func (e *Editor) Nodes() *Registry { return e.nodes }

// Anchors returns the anchor set.
func (e *Editor) Anchors() *AnchorSet { return e.anchors }

// Conns returns the connection manager.
func (e *Editor) Conns() *ConnectionManager { return e.conns }

// Geometry returns the box geometry used for hit testing.
func (e *Editor) Geometry() Geometry { return e.geom }

// Logger returns the editor's logger.
func (e *Editor) Logger() *log.Logger { return e.logger }

// Subscribe registers a listener for editor events and returns a function
// that removes it.
func (e *Editor) Subscribe(fn Listener) func() { return e.bus.subscribe(fn) }

// AddNode registers a node and initializes its eight anchors.
func (e *Editor) AddNode(n Node) error {
	if err := e.nodes.Add(n); err != nil {
		return err
	}
	e.logger.Debug("node added", "id", n.ID, "x", n.X, "y", n.Y)
	return nil
}

// MoveNode sets a node's position.
func (e *Editor) MoveNode(id string, x, y float64) error { return e.nodes.Move(id, x, y) }

// RemoveNode removes a node together with its anchors and every connection
// touching it.
func (e *Editor) RemoveNode(id string) error {
	if err := e.nodes.Remove(id); err != nil {
		return err
	}
	e.logger.Debug("node removed", "id", id)
	return nil
}

// Connect is shorthand for [ConnectionManager.Connect].
func (e *Editor) Connect(source, target AnchorRef, label string) (Connection, error) {
	return e.conns.Connect(source, target, label)
}

// Detach is shorthand for [ConnectionManager.Detach].
func (e *Editor) Detach(id string) error { return e.conns.Detach(id) }

// NodeAt returns the topmost node whose box contains the point. Later nodes
// are drawn above earlier ones.
func (e *Editor) NodeAt(px, py float64) (Node, bool) {
	ids := e.nodes.order
	for i := len(ids) - 1; i >= 0; i-- {
		n := *e.nodes.nodes[ids[i]]
		if e.geom.Contains(n, px, py) {
			return n, true
		}
	}
	return Node{}, false
}

// AnchorAt returns the anchor closest to the point within the grab radius.
// Anchors of upper nodes win ties.
func (e *Editor) AnchorAt(px, py float64) (AnchorRef, bool) {
	var (
		best  AnchorRef
		found bool
		dist  = math.Inf(1)
	)
	ids := e.nodes.order
	for i := len(ids) - 1; i >= 0; i-- {
		n := *e.nodes.nodes[ids[i]]
		for _, c := range Compasses() {
			ax, ay := e.geom.AnchorPoint(n, c)
			d := math.Hypot(px-ax, py-ay)
			if d <= e.geom.AnchorRadius && d < dist {
				best, found, dist = AnchorRef{NodeID: n.ID, Position: c}, true, d
			}
		}
	}
	return best, found
}

// CheckInvariants verifies the structural rules of the editor: every node
// has eight anchors, no anchor originates more than one connection, source
// enablement mirrors the outgoing count, targets stay enabled, and every
// connection references registered nodes. All violations are joined into
// the returned error, each wrapping ErrInvariant.
func (e *Editor) CheckInvariants() error {
	var errs []error
	outgoing := make(map[AnchorRef]int)
	for _, c := range e.conns.Connections() {
		outgoing[c.Source]++
		for _, ref := range []AnchorRef{c.Source, c.Target} {
			if !e.nodes.Has(ref.NodeID) {
				errs = append(errs, fmt.Errorf("connection %s references missing node %s: %w", c.ID, ref.NodeID, ErrInvariant))
			}
		}
	}
	for _, id := range e.nodes.order {
		anchors, err := e.anchors.AnchorsOf(id)
		if err != nil || len(anchors) != AnchorCount {
			errs = append(errs, fmt.Errorf("node %s lacks anchors: %w", id, ErrInvariant))
			continue
		}
		for _, a := range anchors {
			count := outgoing[a.Ref]
			if count > 1 {
				errs = append(errs, fmt.Errorf("anchor %s originates %d connections: %w", a.Ref, count, ErrInvariant))
			}
			if a.SourceEnabled != (count == 0) {
				errs = append(errs, fmt.Errorf("anchor %s source enabled=%t with %d outgoing: %w", a.Ref, a.SourceEnabled, count, ErrInvariant))
			}
			if !a.TargetEnabled {
				errs = append(errs, fmt.Errorf("anchor %s target disabled: %w", a.Ref, ErrInvariant))
			}
		}
	}
	return errors.Join(errs...)
}
