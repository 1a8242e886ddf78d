package diagram

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

// seqIDs returns a generator yielding c1, c2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func newTestEditor(t *testing.T, policy Policy, ids ...string) *Editor {
	t.Helper()
	e := New(WithPolicy(policy), WithIDGenerator(seqIDs()))
	for i, id := range ids {
		if err := e.AddNode(Node{ID: id, Label: id, X: float64(i) * 300}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	return e
}

func ref(node string, c Compass) AnchorRef { return AnchorRef{NodeID: node, Position: c} }

func TestRegistryAdd(t *testing.T) {
	e := New()
	if err := e.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := e.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate AddNode error = %v, want ErrDuplicateID", err)
	}
	if err := e.AddNode(Node{}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("empty id error = %v, want ErrInvalidID", err)
	}
	if got := e.Nodes().Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestRegistryGetMove(t *testing.T) {
	e := New()
	_ = e.AddNode(Node{ID: "a", Label: "Start", X: 10, Y: 20})

	if _, err := e.Nodes().Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := e.MoveNode("a", -500, 1e6); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	n, err := e.Nodes().Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n.X != -500 || n.Y != 1e6 {
		t.Errorf("position = (%v, %v), want (-500, 1e6) without clamping", n.X, n.Y)
	}
	if err := e.MoveNode("missing", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("MoveNode(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegistryInsertionOrder(t *testing.T) {
	e := newTestEditor(t, Policy{}, "c", "a", "b")
	var got []string
	for _, n := range e.Nodes().Nodes() {
		got = append(got, n.ID)
	}
	want := []string{"c", "a", "b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Nodes() order = %v, want %v", got, want)
	}
}

func TestAnchorsInitialized(t *testing.T) {
	e := newTestEditor(t, Policy{}, "a", "b")
	for _, id := range []string{"a", "b"} {
		anchors, err := e.Anchors().AnchorsOf(id)
		if err != nil {
			t.Fatalf("AnchorsOf(%s): %v", id, err)
		}
		if len(anchors) != AnchorCount {
			t.Fatalf("AnchorsOf(%s) = %d anchors, want 8", id, len(anchors))
		}
		for i, a := range anchors {
			if a.Ref.Position != Compass(i) {
				t.Errorf("anchor %d position = %s, want %s", i, a.Ref.Position, Compass(i))
			}
			if !a.SourceEnabled || !a.TargetEnabled {
				t.Errorf("anchor %s not fully enabled: %+v", a.Ref, a)
			}
		}
	}
	if _, err := e.Anchors().AnchorsOf("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AnchorsOf(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAnchorsOfReturnsCopy(t *testing.T) {
	e := newTestEditor(t, Policy{}, "a")
	anchors, _ := e.Anchors().AnchorsOf("a")
	anchors[0].SourceEnabled = false

	a, _ := e.Anchors().Get(ref("a", N))
	if !a.SourceEnabled {
		t.Error("mutating AnchorsOf result must not change the anchor set")
	}
}

func TestConnectLocksSource(t *testing.T) {
	e := newTestEditor(t, Policy{}, "A", "B")
	var events []Event
	e.Subscribe(func(ev Event) { events = append(events, ev) })

	c, err := e.Connect(ref("A", E), ref("B", W), "flows to")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.ID != "c1" || c.Label != "flows to" {
		t.Errorf("connection = %+v", c)
	}
	a, _ := e.Anchors().Get(ref("A", E))
	if a.SourceEnabled {
		t.Error("source anchor should be locked after connect")
	}
	b, _ := e.Anchors().Get(ref("B", W))
	if !b.SourceEnabled || !b.TargetEnabled {
		t.Error("target anchor enablement must not change")
	}
	if len(events) != 1 || events[0].Kind != EventConnected || events[0].Connection.ID != "c1" {
		t.Errorf("events = %+v, want one connected event", events)
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		setup   func(e *Editor)
		source  AnchorRef
		target  AnchorRef
		wantErr error
	}{
		{
			name:    "SelfLoop",
			source:  ref("A", E),
			target:  ref("A", W),
			wantErr: ErrSelfLoop,
		},
		{
			name: "SourceDisabled",
			setup: func(e *Editor) {
				_, _ = e.Connect(ref("A", E), ref("B", W), "")
			},
			source:  ref("A", E),
			target:  ref("C", W),
			wantErr: ErrSourceDisabled,
		},
		{
			name:    "UnknownSource",
			source:  ref("X", E),
			target:  ref("B", W),
			wantErr: ErrNotFound,
		},
		{
			name:    "UnknownTarget",
			source:  ref("A", E),
			target:  ref("X", W),
			wantErr: ErrNotFound,
		},
		{
			name:    "InvalidPosition",
			source:  ref("A", Compass(9)),
			target:  ref("B", W),
			wantErr: ErrNotFound,
		},
		{
			name:   "DuplicateRejectedByPolicy",
			policy: Policy{RejectDuplicates: true},
			setup: func(e *Editor) {
				_, _ = e.Connect(ref("A", E), ref("B", W), "")
			},
			source:  ref("A", NE),
			target:  ref("B", NW),
			wantErr: ErrDuplicateConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t, tt.policy, "A", "B", "C")
			if tt.setup != nil {
				tt.setup(e)
			}
			before := e.Conns().Len()
			_, err := e.Connect(tt.source, tt.target, "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Connect error = %v, want %v", err, tt.wantErr)
			}
			if e.Conns().Len() != before {
				t.Errorf("failed connect changed connection count %d -> %d", before, e.Conns().Len())
			}
			if err := e.CheckInvariants(); err != nil {
				t.Errorf("invariants: %v", err)
			}
		})
	}
}

func TestDuplicatesPermittedByDefault(t *testing.T) {
	e := newTestEditor(t, Policy{}, "A", "B")
	if _, err := e.Connect(ref("A", E), ref("B", W), "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Connect(ref("A", NE), ref("B", W), "two"); err != nil {
		t.Fatalf("second connection between same nodes should be allowed: %v", err)
	}
	if got := len(e.Conns().ConnectionsOf(ref("B", W), Incoming)); got != 2 {
		t.Errorf("incoming on B:W = %d, want 2", got)
	}
}

func TestSelfLoopAllowedByPolicy(t *testing.T) {
	e := newTestEditor(t, Policy{AllowSelfLoops: true}, "A")
	if _, err := e.Connect(ref("A", E), ref("A", W), "loop"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func TestSourceDisabledScenario(t *testing.T) {
	e := newTestEditor(t, Policy{}, "A", "B", "C")
	ab, err := e.Connect(ref("A", E), ref("B", W), "ab")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Connect(ref("A", E), ref("C", W), "ac"); !errors.Is(err, ErrSourceDisabled) {
		t.Fatalf("A->C before detach error = %v, want ErrSourceDisabled", err)
	}
	if got, err := e.Conns().Get(ab.ID); err != nil || got != ab {
		t.Errorf("existing connection changed: %+v, %v", got, err)
	}
	if err := e.Detach(ab.ID); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if _, err := e.Connect(ref("A", E), ref("C", W), "ac"); err != nil {
		t.Fatalf("A->C after detach: %v", err)
	}
}

func TestConnectDetachRestoresState(t *testing.T) {
	e := newTestEditor(t, Policy{}, "A", "B")
	before, _ := e.Anchors().AnchorsOf("A")

	c, err := e.Connect(ref("A", S), ref("B", N), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Detach(c.ID); err != nil {
		t.Fatal(err)
	}

	after, _ := e.Anchors().AnchorsOf("A")
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("anchor %d = %+v after round trip, want %+v", i, after[i], before[i])
		}
	}
	if err := e.Detach(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Detach error = %v, want ErrNotFound", err)
	}
}

func TestCanDetach(t *testing.T) {
	for _, protect := range []bool{false, true} {
		t.Run(fmt.Sprintf("protect=%t", protect), func(t *testing.T) {
			e := newTestEditor(t, Policy{ProtectIncoming: protect}, "A", "B", "C")
			_, _ = e.Connect(ref("C", W), ref("A", E), "in")
			out, _ := e.Connect(ref("A", E), ref("B", W), "out")

			err := e.Conns().CanDetach(out.ID)
			if protect && !errors.Is(err, ErrDetachForbidden) {
				t.Errorf("CanDetach error = %v, want ErrDetachForbidden", err)
			}
			if !protect && err != nil {
				t.Errorf("CanDetach error = %v, want nil", err)
			}
		})
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	e := newTestEditor(t, Policy{}, "A", "B", "C")
	_, _ = e.Connect(ref("A", E), ref("B", W), "ab")
	_, _ = e.Connect(ref("B", E), ref("C", W), "bc")
	_, _ = e.Connect(ref("C", S), ref("A", S), "ca")

	var detached int
	e.Subscribe(func(ev Event) {
		if ev.Kind == EventDetached {
			detached++
		}
	})

	if err := e.RemoveNode("B"); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if detached != 2 {
		t.Errorf("detached events = %d, want 2", detached)
	}
	if e.Conns().Len() != 1 {
		t.Errorf("remaining connections = %d, want 1", e.Conns().Len())
	}
	a, _ := e.Anchors().Get(ref("A", E))
	if !a.SourceEnabled {
		t.Error("A:E should be re-enabled after its target node is removed")
	}
	if _, err := e.Anchors().AnchorsOf("B"); !errors.Is(err, ErrNotFound) {
		t.Error("anchors of removed node should be gone")
	}
	if err := e.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
	if err := e.RemoveNode("B"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveNode error = %v, want ErrNotFound", err)
	}
}

func TestInvariantsHoldForRandomOperations(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		e := newTestEditor(t, Policy{}, ids...)

		for step := 0; step < 200; step++ {
			conns := e.Conns().Connections()
			if len(conns) > 0 && rng.Intn(3) == 0 {
				_ = e.Detach(conns[rng.Intn(len(conns))].ID)
			} else {
				src := ref(ids[rng.Intn(len(ids))], Compass(rng.Intn(AnchorCount)))
				dst := ref(ids[rng.Intn(len(ids))], Compass(rng.Intn(AnchorCount)))
				_, _ = e.Connect(src, dst, "")
			}
			if err := e.CheckInvariants(); err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	e := newTestEditor(t, Policy{}, "A", "B")
	var n int
	stop := e.Subscribe(func(Event) { n++ })
	_ = e.MoveNode("A", 1, 1)
	stop()
	_ = e.MoveNode("A", 2, 2)
	if n != 1 {
		t.Errorf("events after unsubscribe = %d, want 1", n)
	}
}

func TestParseAnchorRef(t *testing.T) {
	tests := []struct {
		in      string
		want    AnchorRef
		wantErr bool
	}{
		{in: "box1:E", want: ref("box1", E)},
		{in: "box1:nw", want: ref("box1", NW)},
		{in: "ns:a:SE", want: ref("ns:a", SE)},
		{in: "box1", wantErr: true},
		{in: ":E", wantErr: true},
		{in: "box1:X", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnchorRef(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAnchorRef(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAnchorRef(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
