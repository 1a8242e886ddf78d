package cli

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/checklistapp/diagram/pkg/diagram"
	"github.com/checklistapp/diagram/pkg/gesture"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/persist"
	"github.com/checklistapp/diagram/pkg/store"
)

func newDemoModel(t *testing.T, client persist.Client, project string) editorModel {
	t.Helper()
	e, rep := pkgio.Import(pkgio.Demo(), diagram.WithLogger(log.New(io.Discard)))
	if !rep.Clean() {
		t.Fatalf("demo import dropped items: %v", rep.Err())
	}
	m := newEditorModel(context.Background(), e, client, project)
	t.Cleanup(m.ctrl.Close)
	return m
}

func send(t *testing.T, m editorModel, keys ...tea.KeyMsg) editorModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(editorModel)
	}
	return m
}

var (
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func runeKey(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func TestEditorStartsOnFirstBox(t *testing.T) {
	m := newDemoModel(t, nil, "")
	// box1 at (50,50) with the default 160x60 box.
	if m.cx != 130 || m.cy != 80 {
		t.Errorf("cursor = %v,%v, want centre of box1", m.cx, m.cy)
	}
	if !strings.Contains(m.View(), "on box box1") {
		t.Errorf("view does not report the box under the cursor:\n%s", m.View())
	}
}

func TestEditorDragBox(t *testing.T) {
	m := newDemoModel(t, nil, "")
	m = send(t, m, keySpace)
	if m.ctrl.State() != gesture.DraggingNode {
		t.Fatalf("state after press = %s", m.ctrl.State())
	}
	m = send(t, m, keyRight, keyRight, keyDown, keySpace)

	n, _ := m.ctrl.Editor().Nodes().Get("box1")
	if n.X != 70 || n.Y != 60 {
		t.Errorf("box1 at %v,%v, want 70,60", n.X, n.Y)
	}
	if !m.dirty || m.status != "Moved box1" {
		t.Errorf("dirty=%v status=%q", m.dirty, m.status)
	}
}

func TestEditorConnectThroughAnchors(t *testing.T) {
	m := newDemoModel(t, nil, "")
	e := m.ctrl.Editor()

	// box4 has no outgoing arrows; draw box4:E -> box3:S.
	m.cx, m.cy = e.Geometry().AnchorPoint(mustNode(t, e, "box4"), diagram.E)
	m = send(t, m, keySpace)
	if m.ctrl.State() != gesture.ConnectingFrom {
		t.Fatalf("state after press on free anchor = %s (err %v)", m.ctrl.State(), m.err)
	}
	tx, ty := e.Geometry().AnchorPoint(mustNode(t, e, "box3"), diagram.S)
	m = m.moveCursor(tx-m.cx, ty-m.cy)
	m = send(t, m, keySpace)

	if e.Conns().Len() != 5 {
		t.Fatalf("connections = %d, want 5 (err %v)", e.Conns().Len(), m.err)
	}
	if !strings.HasPrefix(m.status, "Connected box4:E") {
		t.Errorf("status = %q", m.status)
	}
	if err := e.CheckInvariants(); err != nil {
		t.Error(err)
	}
}

func TestEditorPressOnUsedAnchorDetaches(t *testing.T) {
	m := newDemoModel(t, nil, "")
	e := m.ctrl.Editor()

	// box1:E originates box1 -> box2; pressing it grabs that arrow.
	m.cx, m.cy = e.Geometry().AnchorPoint(mustNode(t, e, "box1"), diagram.E)
	m = send(t, m, keySpace)
	if m.ctrl.State() != gesture.DetachingConnection {
		t.Fatalf("state = %s", m.ctrl.State())
	}
	m = m.moveCursor(0, 300) // empty space
	m = send(t, m, keySpace)

	if e.Conns().Len() != 3 {
		t.Errorf("connections = %d, want 3", e.Conns().Len())
	}
	a, _ := e.Anchors().Get(diagram.AnchorRef{NodeID: "box1", Position: diagram.E})
	if !a.SourceEnabled {
		t.Error("box1:E should be free after detaching")
	}
}

func TestEditorCancel(t *testing.T) {
	m := newDemoModel(t, nil, "")
	e := m.ctrl.Editor()
	m.cx, m.cy = e.Geometry().AnchorPoint(mustNode(t, e, "box4"), diagram.E)
	m = send(t, m, keySpace, keyEsc)
	if m.ctrl.State() != gesture.Idle || e.Conns().Len() != 4 {
		t.Errorf("state=%s conns=%d after cancel", m.ctrl.State(), e.Conns().Len())
	}
}

func TestEditorTabAndAnchorCycling(t *testing.T) {
	m := newDemoModel(t, nil, "")
	m = send(t, m, keyTab)
	if m.focus != 1 || m.cx != 380 || m.cy != 80 {
		t.Errorf("after tab focus=%d cursor=%v,%v, want box2 centre", m.focus, m.cx, m.cy)
	}
	m = send(t, m, runeKey('a'))
	// First anchor is N of box2 at (380, 50).
	if m.cx != 380 || m.cy != 50 {
		t.Errorf("after a cursor=%v,%v, want box2:N", m.cx, m.cy)
	}
	if !strings.Contains(m.View(), "on anchor box2:N") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestEditorSave(t *testing.T) {
	st := store.NewMemoryStore()
	client := persist.NewStoreClient(st, log.New(io.Discard))
	m := newDemoModel(t, client, "42")

	next, cmd := m.Update(runeKey('s'))
	m = next.(editorModel)
	if !m.saving || cmd == nil {
		t.Fatal("save should start an asynchronous command")
	}
	next, _ = m.Update(cmd())
	m = next.(editorModel)
	if m.saving || m.err != nil || m.status != "Saved version 1" {
		t.Errorf("saving=%v err=%v status=%q", m.saving, m.err, m.status)
	}
	rec, err := st.Current(context.Background(), "42")
	if err != nil || len(rec.Document.Arrows) != 4 {
		t.Errorf("stored = %+v, %v", rec, err)
	}
}

func TestEditorSaveWithoutProject(t *testing.T) {
	m := newDemoModel(t, nil, "")
	next, cmd := m.Update(runeKey('s'))
	m = next.(editorModel)
	if cmd != nil || m.err == nil {
		t.Errorf("save without project: cmd=%v err=%v", cmd != nil, m.err)
	}
}

func TestEditorQuit(t *testing.T) {
	m := newDemoModel(t, nil, "")
	_, cmd := m.Update(runeKey('q'))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func mustNode(t *testing.T, e *diagram.Editor, id string) diagram.Node {
	t.Helper()
	n, err := e.Nodes().Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return n
}
