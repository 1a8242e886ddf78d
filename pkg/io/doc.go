// Package io converts diagrams to and from the JSON document exchanged with
// the host page and the persistence endpoint.
//
// # JSON Format
//
// A document has two top-level arrays:
//
//	{
//	  "boxes": [
//	    {"id": "box1", "label": "Start", "description": "", "x": 50, "y": 50},
//	    {"id": "box2", "label": "Check", "description": "", "x": 250, "y": 50}
//	  ],
//	  "arrows": [
//	    {"source": "box1", "target": "box2", "label": "Suivant"}
//	  ]
//	}
//
// Arrows reference boxes, not anchors. Anchor positions are an editing
// concern and are not persisted.
//
// # Export
//
// [Export] snapshots an editor: boxes in insertion order, arrows in the
// order the connections were made. [WriteJSON] and [ExportJSON] encode a
// document to a writer or a file.
//
// # Import
//
// [Import] builds a fresh editor from a document. Import is never fatal:
// duplicate boxes and arrows whose endpoints are unknown are skipped and
// listed in the returned [Report]. Because anchors are not stored, each
// arrow is attached using the side of the source box that faces the target
// box (and the target side facing back); when that source anchor is already
// taken the next closest free one is used.
//
// [ReadJSON] and [ImportJSON] decode a document without building an editor.
//
// # Concurrency
//
// Documents are plain values and safe to share once built. [Export] reads
// the editor and must not run concurrently with mutations.
package io
