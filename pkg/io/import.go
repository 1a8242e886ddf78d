package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/checklistapp/diagram/pkg/diagram"
	derrors "github.com/checklistapp/diagram/pkg/errors"
	"github.com/checklistapp/diagram/pkg/observability"
)

// Issue describes one box or arrow skipped during [Import].
type Issue struct {
	Index int    // position in the document's boxes or arrows array
	ID    string // box ID, or "source->target" for arrows
	Err   error
}

func (i Issue) Error() string { return fmt.Sprintf("#%d %s: %v", i.Index, i.ID, i.Err) }

func (i Issue) Unwrap() error { return i.Err }

// Report lists everything [Import] had to skip.
type Report struct {
	DroppedBoxes  []Issue
	DroppedArrows []Issue
}

// Clean reports whether the whole document was imported.
func (r *Report) Clean() bool { return len(r.DroppedBoxes) == 0 && len(r.DroppedArrows) == 0 }

// Err returns a single MALFORMED_DOCUMENT error describing every dropped
// item, or nil when nothing was dropped.
func (r *Report) Err() error {
	if r.Clean() {
		return nil
	}
	var errs []error
	for _, i := range r.DroppedBoxes {
		errs = append(errs, fmt.Errorf("box %w", i))
	}
	for _, i := range r.DroppedArrows {
		errs = append(errs, fmt.Errorf("arrow %w", i))
	}
	return derrors.Wrap(derrors.ErrCodeMalformedDocument, errors.Join(errs...),
		"%d boxes and %d arrows dropped", len(r.DroppedBoxes), len(r.DroppedArrows))
}

// ReadJSON decodes a document from r. It checks only JSON syntax; use
// [GraphDocument.Validate] for strict checking or [Import] for lenient
// loading. ReadJSON does not close r.
func ReadJSON(r io.Reader) (GraphDocument, error) {
	var doc GraphDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return GraphDocument{}, derrors.Wrap(derrors.ErrCodeMalformedDocument, err, "decode")
	}
	return doc, nil
}

// ImportJSON reads the JSON document at path.
func ImportJSON(path string) (GraphDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return GraphDocument{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// Import builds a new editor from doc. Boxes are registered first; a box
// whose ID is empty or already taken is skipped. Each arrow is then
// connected using the anchors that face each other, see the package
// documentation. Arrows with unknown endpoints, self loops rejected by the
// policy, or no free source anchor are skipped. Import never fails; check
// the report.
func Import(doc GraphDocument, opts ...diagram.Option) (*diagram.Editor, *Report) {
	e := diagram.New(opts...)
	rep := &Report{}

	for i, b := range doc.Boxes {
		if err := e.AddNode(b.Node()); err != nil {
			rep.DroppedBoxes = append(rep.DroppedBoxes, Issue{Index: i, ID: b.ID, Err: err})
		}
	}
	for i, a := range doc.Arrows {
		if _, err := ConnectNodes(e, a.Source, a.Target, a.Label); err != nil {
			rep.DroppedArrows = append(rep.DroppedArrows, Issue{Index: i, ID: a.Source + "->" + a.Target, Err: err})
		}
	}

	dropped := len(rep.DroppedBoxes) + len(rep.DroppedArrows)
	observability.Editor().OnImport(len(doc.Boxes), len(doc.Arrows), dropped)
	if dropped > 0 {
		e.Logger().Warn("import dropped items", "boxes", len(rep.DroppedBoxes), "arrows", len(rep.DroppedArrows))
	}
	return e, rep
}

// Load builds an editor from the boxes and arrows a host page embeds as its
// initial state.
func Load(boxes []Box, arrows []Arrow, opts ...diagram.Option) (*diagram.Editor, *Report) {
	return Import(GraphDocument{Boxes: boxes, Arrows: arrows}, opts...)
}

// ConnectNodes connects two nodes through the anchors that face each
// other, the same way [Import] places arrows. The source is the first free
// anchor of the ranking; if none is free the error wraps
// [diagram.ErrSourceDisabled].
func ConnectNodes(e *diagram.Editor, sourceID, targetID, label string) (diagram.Connection, error) {
	src, err := e.Nodes().Get(sourceID)
	if err != nil {
		return diagram.Connection{}, derrors.Wrap(derrors.ErrCodeMalformedDocument, err, "unknown source %q", sourceID)
	}
	dst, err := e.Nodes().Get(targetID)
	if err != nil {
		return diagram.Connection{}, derrors.Wrap(derrors.ErrCodeMalformedDocument, err, "unknown target %q", targetID)
	}

	g := e.Geometry()
	target := diagram.AnchorRef{NodeID: dst.ID, Position: g.RankAnchors(dst, src)[0]}
	for _, pos := range g.RankAnchors(src, dst) {
		source := diagram.AnchorRef{NodeID: src.ID, Position: pos}
		anchor, err := e.Anchors().Get(source)
		if err != nil {
			return diagram.Connection{}, err
		}
		if !anchor.SourceEnabled {
			continue
		}
		return e.Connect(source, target, label)
	}
	return diagram.Connection{}, fmt.Errorf("no free anchor on %s: %w", src.ID, diagram.ErrSourceDisabled)
}
