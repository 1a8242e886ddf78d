// Package gesture turns pointer input into editor mutations.
//
// A [Controller] is a small state machine sitting between an input source
// (the terminal editor, a test) and a [diagram.Editor]:
//
//	Idle --PressNode--------> DraggingNode --Release--> Idle
//	Idle --PressAnchor------> ConnectingFrom --Release--> Idle (+Connect)
//	Idle --PressConnection--> DetachingConnection --Release--> Idle (+Detach)
//
// Only one gesture is active at a time. [Controller.Cancel] abandons the
// current gesture without touching the editor.
package gesture

import (
	"errors"
	"fmt"

	"github.com/checklistapp/diagram/pkg/diagram"
)

// ErrBusy is returned when a press arrives while another gesture is active.
var ErrBusy = errors.New("gesture already in progress")

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	DraggingNode
	ConnectingFrom
	DetachingConnection
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DraggingNode:
		return "dragging-node"
	case ConnectingFrom:
		return "connecting"
	case DetachingConnection:
		return "detaching"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// OutcomeKind describes what a completed gesture did.
type OutcomeKind int

const (
	// Abandoned means the gesture ended without changing connections.
	Abandoned OutcomeKind = iota
	Moved
	Connected
	Detached
	Reconnected
)

func (k OutcomeKind) String() string {
	return [...]string{"abandoned", "moved", "connected", "detached", "reconnected"}[k]
}

// Outcome is returned by [Controller.Release].
type Outcome struct {
	Kind       OutcomeKind
	NodeID     string             // moved node
	Connection diagram.Connection // created, removed or re-created connection
}

// Controller drives an editor from pointer gestures. It is not safe for
// concurrent use, like the editor it wraps.
type Controller struct {
	editor *diagram.Editor
	state  State

	nodeID     string
	offX, offY float64
	anchor     diagram.AnchorRef
	conn       diagram.Connection
	px, py     float64

	last     diagram.Event
	redraw   func()
	unsubscr func()
}

// New creates a controller for e and subscribes to its events. Call
// [Controller.Close] to unsubscribe.
func New(e *diagram.Editor) *Controller {
	c := &Controller{editor: e}
	c.unsubscr = e.Subscribe(func(ev diagram.Event) {
		c.last = ev
		c.notify()
	})
	return c
}

// Close detaches the controller from its editor.
func (c *Controller) Close() {
	if c.unsubscr != nil {
		c.unsubscr()
		c.unsubscr = nil
	}
}

// OnRedraw registers a callback invoked after every editor event and
// whenever the pointer moves during a gesture.
func (c *Controller) OnRedraw(fn func()) { c.redraw = fn }

// Editor returns the editor being driven.
func (c *Controller) Editor() *diagram.Editor { return c.editor }

// State returns the current gesture state.
func (c *Controller) State() State { return c.state }

// Last returns the most recent editor event.
func (c *Controller) Last() diagram.Event { return c.last }

// Pointer returns the last tracked pointer position.
func (c *Controller) Pointer() (float64, float64) { return c.px, c.py }

// Pending returns the anchor a connection is being drawn from, or the
// connection being detached, depending on the state.
func (c *Controller) Pending() (diagram.AnchorRef, diagram.Connection) { return c.anchor, c.conn }

// Press hit-tests the point and starts the matching gesture: an anchor that
// originates a connection starts a detach of that connection, any other
// anchor starts a new connection, and a node body starts a drag. Pressing
// empty space does nothing.
func (c *Controller) Press(px, py float64) error {
	if ref, ok := c.editor.AnchorAt(px, py); ok {
		if out := c.editor.Conns().ConnectionsOf(ref, diagram.Outgoing); len(out) > 0 {
			return c.PressConnection(out[0].ID, px, py)
		}
		return c.PressAnchor(ref, px, py)
	}
	if n, ok := c.editor.NodeAt(px, py); ok {
		return c.PressNode(n.ID, px, py)
	}
	return nil
}

// PressNode starts dragging a node, keeping the grab offset.
func (c *Controller) PressNode(id string, px, py float64) error {
	if c.state != Idle {
		return ErrBusy
	}
	n, err := c.editor.Nodes().Get(id)
	if err != nil {
		return err
	}
	c.state, c.nodeID = DraggingNode, id
	c.offX, c.offY = px-n.X, py-n.Y
	c.track(px, py)
	return nil
}

// PressAnchor starts drawing a connection from ref. A locked anchor is
// rejected with [diagram.ErrSourceDisabled] and the state is unchanged.
func (c *Controller) PressAnchor(ref diagram.AnchorRef, px, py float64) error {
	if c.state != Idle {
		return ErrBusy
	}
	a, err := c.editor.Anchors().Get(ref)
	if err != nil {
		return err
	}
	if !a.SourceEnabled {
		return fmt.Errorf("press %s: %w", ref, diagram.ErrSourceDisabled)
	}
	c.state, c.anchor = ConnectingFrom, ref
	c.track(px, py)
	return nil
}

// PressConnection starts dragging an existing connection off its target.
func (c *Controller) PressConnection(id string, px, py float64) error {
	if c.state != Idle {
		return ErrBusy
	}
	conn, err := c.editor.Conns().Get(id)
	if err != nil {
		return err
	}
	if err := c.editor.Conns().CanDetach(id); err != nil {
		return err
	}
	c.state, c.conn = DetachingConnection, conn
	c.track(px, py)
	return nil
}

// Move tracks the pointer. While dragging a node the node follows the
// pointer with its grab offset preserved.
func (c *Controller) Move(px, py float64) error {
	if c.state == DraggingNode {
		if err := c.editor.MoveNode(c.nodeID, px-c.offX, py-c.offY); err != nil {
			c.reset()
			return err
		}
	}
	c.track(px, py)
	return nil
}

// Release completes the active gesture at the given point and returns the
// controller to Idle. Releasing while idle returns an Abandoned outcome.
func (c *Controller) Release(px, py float64) (Outcome, error) {
	defer c.reset()

	switch c.state {
	case DraggingNode:
		if err := c.editor.MoveNode(c.nodeID, px-c.offX, py-c.offY); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: Moved, NodeID: c.nodeID}, nil

	case ConnectingFrom:
		target, ok := c.editor.AnchorAt(px, py)
		if !ok {
			return Outcome{Kind: Abandoned}, nil
		}
		conn, err := c.editor.Connect(c.anchor, target, "")
		if err != nil {
			return Outcome{Kind: Abandoned}, err
		}
		return Outcome{Kind: Connected, Connection: conn}, nil

	case DetachingConnection:
		old := c.conn
		if err := c.editor.Detach(old.ID); err != nil {
			return Outcome{Kind: Abandoned}, err
		}
		target, ok := c.editor.AnchorAt(px, py)
		if !ok || target.NodeID == old.Source.NodeID {
			return Outcome{Kind: Detached, Connection: old}, nil
		}
		conn, err := c.editor.Connect(old.Source, target, old.Label)
		if err != nil {
			return Outcome{Kind: Detached, Connection: old}, err
		}
		return Outcome{Kind: Reconnected, Connection: conn}, nil
	}
	return Outcome{Kind: Abandoned}, nil
}

// Cancel abandons the active gesture. A dragged node stays where it was
// last moved; no connection is created or removed.
func (c *Controller) Cancel() {
	if c.state != Idle {
		c.editor.Logger().Debug("gesture cancelled", "state", c.state)
	}
	c.reset()
	c.notify()
}

func (c *Controller) track(px, py float64) {
	c.px, c.py = px, py
	if c.state != Idle {
		c.notify()
	}
}

func (c *Controller) reset() {
	c.state = Idle
	c.nodeID = ""
	c.offX, c.offY = 0, 0
	c.anchor = diagram.AnchorRef{}
	c.conn = diagram.Connection{}
}

func (c *Controller) notify() {
	if c.redraw != nil {
		c.redraw()
	}
}
