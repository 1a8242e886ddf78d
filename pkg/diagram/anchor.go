package diagram

import (
	"fmt"
	"strings"
)

// Compass identifies one of the eight fixed anchor positions on a node.
type Compass int

// The declaration order is the canonical anchor order used by
// [AnchorSet.AnchorsOf] and for deterministic tie-breaking.
const (
	N Compass = iota
	NE
	E
	SE
	S
	SW
	W
	NW
)

// AnchorCount is the number of anchors every node carries.
const AnchorCount = 8

var compassNames = [AnchorCount]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Compasses returns all compass positions in canonical order.
func Compasses() []Compass {
	return []Compass{N, NE, E, SE, S, SW, W, NW}
}

func (c Compass) String() string {
	if c < 0 || int(c) >= AnchorCount {
		return fmt.Sprintf("Compass(%d)", int(c))
	}
	return compassNames[c]
}

// Valid reports whether c is one of the eight positions.
func (c Compass) Valid() bool { return c >= 0 && int(c) < AnchorCount }

// ParseCompass parses an abbreviation such as "ne" or "W".
func ParseCompass(s string) (Compass, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range compassNames {
		if name == up {
			return Compass(i), nil
		}
	}
	return 0, fmt.Errorf("invalid compass position %q", s)
}

// AnchorRef addresses a single anchor by owning node and position.
type AnchorRef struct {
	NodeID   string
	Position Compass
}

func (r AnchorRef) String() string { return r.NodeID + ":" + r.Position.String() }

// ParseAnchorRef parses the "node:POS" form produced by [AnchorRef.String].
func ParseAnchorRef(s string) (AnchorRef, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return AnchorRef{}, fmt.Errorf("invalid anchor %q: want node:POSITION", s)
	}
	pos, err := ParseCompass(s[i+1:])
	if err != nil {
		return AnchorRef{}, err
	}
	return AnchorRef{NodeID: s[:i], Position: pos}, nil
}

// Anchor is an attachment point on a node.
type Anchor struct {
	Ref           AnchorRef
	SourceEnabled bool // false while the anchor originates a connection
	TargetEnabled bool // always true; targets accept any number of connections
}

// AnchorSet holds the eight anchors of every registered node.
type AnchorSet struct {
	anchors map[string]*[AnchorCount]Anchor
}

func newAnchorSet() *AnchorSet {
	return &AnchorSet{anchors: make(map[string]*[AnchorCount]Anchor)}
}

// Initialize creates the anchors of a newly registered node, all enabled as
// source and target. Returns ErrDuplicateID if the node already has anchors.
func (s *AnchorSet) Initialize(nodeID string) error {
	if nodeID == "" {
		return ErrInvalidID
	}
	if _, ok := s.anchors[nodeID]; ok {
		return fmt.Errorf("anchors of %s: %w", nodeID, ErrDuplicateID)
	}
	var set [AnchorCount]Anchor
	for i := range set {
		set[i] = Anchor{
			Ref:           AnchorRef{NodeID: nodeID, Position: Compass(i)},
			SourceEnabled: true,
			TargetEnabled: true,
		}
	}
	s.anchors[nodeID] = &set
	return nil
}

// AnchorsOf returns the node's anchors in canonical order (N, NE, E, SE, S,
// SW, W, NW).
func (s *AnchorSet) AnchorsOf(nodeID string) ([]Anchor, error) {
	set, ok := s.anchors[nodeID]
	if !ok {
		return nil, fmt.Errorf("anchors of %s: %w", nodeID, ErrNotFound)
	}
	out := make([]Anchor, AnchorCount)
	copy(out, set[:])
	return out, nil
}

// Get returns the anchor addressed by ref.
func (s *AnchorSet) Get(ref AnchorRef) (Anchor, error) {
	a, err := s.lookup(ref)
	if err != nil {
		return Anchor{}, err
	}
	return *a, nil
}

// setSourceEnabled is the only mutator of the SourceEnabled flag. It is
// called exclusively by the connection manager.
func (s *AnchorSet) setSourceEnabled(ref AnchorRef, enabled bool) error {
	a, err := s.lookup(ref)
	if err != nil {
		return err
	}
	a.SourceEnabled = enabled
	return nil
}

func (s *AnchorSet) drop(nodeID string) { delete(s.anchors, nodeID) }

func (s *AnchorSet) lookup(ref AnchorRef) (*Anchor, error) {
	if !ref.Position.Valid() {
		return nil, fmt.Errorf("anchor %s: %w", ref, ErrNotFound)
	}
	set, ok := s.anchors[ref.NodeID]
	if !ok {
		return nil, fmt.Errorf("anchor %s: %w", ref, ErrNotFound)
	}
	return &set[ref.Position], nil
}
