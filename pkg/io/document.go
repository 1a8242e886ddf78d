package io

import (
	"github.com/checklistapp/diagram/pkg/diagram"
	derrors "github.com/checklistapp/diagram/pkg/errors"
)

// GraphDocument is the serialized form of a diagram.
type GraphDocument struct {
	Boxes  []Box   `json:"boxes"`
	Arrows []Arrow `json:"arrows"`
}

// Box is a serialized node.
type Box struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Arrow is a serialized connection between two boxes.
type Arrow struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Node converts the box into an editor node.
func (b Box) Node() diagram.Node {
	return diagram.Node{ID: b.ID, Label: b.Label, Description: b.Description, X: b.X, Y: b.Y}
}

// Validate checks the document strictly: box IDs must be valid and unique,
// labels well formed, and every arrow must reference known boxes. Unlike
// [Import], the first problem is returned as a MALFORMED_DOCUMENT error.
func (d GraphDocument) Validate() error {
	seen := make(map[string]bool, len(d.Boxes))
	for i, b := range d.Boxes {
		if err := derrors.ValidateNodeID(b.ID); err != nil {
			return derrors.Wrap(derrors.ErrCodeMalformedDocument, err, "box %d", i)
		}
		if seen[b.ID] {
			return derrors.New(derrors.ErrCodeMalformedDocument, "box %d: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
		if err := derrors.ValidateLabel(b.Label); err != nil {
			return derrors.Wrap(derrors.ErrCodeMalformedDocument, err, "box %s label", b.ID)
		}
	}
	for i, a := range d.Arrows {
		if !seen[a.Source] {
			return derrors.New(derrors.ErrCodeMalformedDocument, "arrow %d: unknown source %q", i, a.Source)
		}
		if !seen[a.Target] {
			return derrors.New(derrors.ErrCodeMalformedDocument, "arrow %d: unknown target %q", i, a.Target)
		}
		if err := derrors.ValidateLabel(a.Label); err != nil {
			return derrors.Wrap(derrors.ErrCodeMalformedDocument, err, "arrow %d label", i)
		}
	}
	return nil
}

// Demo returns the sample checklist flow shown on a new project page.
func Demo() GraphDocument {
	return GraphDocument{
		Boxes: []Box{
			{ID: "box1", Label: "Étape 1", Description: "Début du processus", X: 50, Y: 50},
			{ID: "box2", Label: "Étape 2", Description: "Traitement", X: 300, Y: 50},
			{ID: "box3", Label: "Étape 3", Description: "Validation", X: 550, Y: 50},
			{ID: "box4", Label: "Étape 4", Description: "Fin du processus", X: 300, Y: 200},
		},
		Arrows: []Arrow{
			{Source: "box1", Target: "box2", Label: "Suivant"},
			{Source: "box2", Target: "box3", Label: "Valider"},
			{Source: "box3", Target: "box4", Label: "OK"},
			{Source: "box2", Target: "box4", Label: "Erreur"},
		},
	}
}
