// Package diagram implements the state core of an interactive node-link
// diagram editor.
//
// # Overview
//
// A diagram is a set of positioned boxes (nodes) joined by directed, labeled
// connections. Connections do not attach to nodes directly: every node owns
// eight fixed anchor points, one per compass position, and a connection runs
// from an anchor of its source node to an anchor of its target node.
//
// The package is organised around four collaborators, all owned by an
// [Editor]:
//
//   - [Registry] holds the nodes (id, label, description, position).
//   - [AnchorSet] holds the eight anchors of every registered node.
//   - [ConnectionManager] owns the active connections and enforces the
//     outgoing-connection lock.
//   - The event bus delivers [Event] notifications to subscribers such as the
//     gesture controller or a rendering layer.
//
// # Basic Usage
//
//	ed := diagram.New()
//	_ = ed.AddNode(diagram.Node{ID: "a", Label: "Start"})
//	_ = ed.AddNode(diagram.Node{ID: "b", Label: "End", X: 300})
//	c, err := ed.Connect(
//	    diagram.AnchorRef{NodeID: "a", Position: diagram.E},
//	    diagram.AnchorRef{NodeID: "b", Position: diagram.W},
//	    "next",
//	)
//
// # Outgoing-Connection Lock
//
// An anchor may originate at most one active connection. The lock is tracked
// by the anchor's SourceEnabled flag: it is cleared by a successful
// [ConnectionManager.Connect] and set again by [ConnectionManager.Detach].
// Incoming connections are unbounded and TargetEnabled is never changed.
// After every operation the following holds for each anchor:
//
//	SourceEnabled == (outgoing connections from the anchor == 0)
//
// [Editor.CheckInvariants] verifies this together with the structural rules
// (eight anchors per node, no connection referencing a missing node).
//
// # Policies
//
// Some checks are optional and off by default; see [Policy]. Self-loops are
// rejected unless [Policy.AllowSelfLoops] is set.
//
// # Concurrency
//
// Editor instances are not safe for concurrent use. Mutations are expected to
// run synchronously inside the handler of the pointer event that triggered
// them, and events are delivered synchronously in mutation order.
package diagram
