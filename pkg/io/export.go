package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/checklistapp/diagram/pkg/diagram"
)

// Export snapshots the editor as a document. Boxes appear in insertion
// order and arrows in the order their connections were created. Anchor
// positions are dropped; arrows keep only the source and target node IDs.
func Export(e *diagram.Editor) GraphDocument {
	nodes := e.Nodes().Nodes()
	conns := e.Conns().Connections()
	doc := GraphDocument{
		Boxes:  make([]Box, len(nodes)),
		Arrows: make([]Arrow, len(conns)),
	}
	for i, n := range nodes {
		doc.Boxes[i] = Box{ID: n.ID, Label: n.Label, Description: n.Description, X: n.X, Y: n.Y}
	}
	for i, c := range conns {
		doc.Arrows[i] = Arrow{Source: c.Source.NodeID, Target: c.Target.NodeID, Label: c.Label}
	}
	return doc
}

// WriteJSON encodes a document as indented JSON and writes it to w.
// The output can be read back with [ReadJSON].
func WriteJSON(doc GraphDocument, w io.Writer) error {
	if doc.Boxes == nil {
		doc.Boxes = []Box{}
	}
	if doc.Arrows == nil {
		doc.Arrows = []Arrow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a document to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(doc GraphDocument, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(doc, f)
}
