// Package pkg holds the libraries behind the diagram editor.
//
// # Overview
//
// A diagram is a set of rectangular boxes, each carrying eight compass
// anchors, joined by directed labeled arrows. Every anchor may originate at
// most one arrow at a time and may receive any number. The packages are
// organized as follows:
//
//  1. [diagram] - Node registry, anchor set and connection manager
//  2. [gesture] - Pointer state machine for drawing and detaching arrows
//  3. [io] - Document format, demo data and import/export
//  4. [persist] - Save/load clients (HTTP host or direct store access)
//  5. [store] - Versioned document storage (memory, file, Redis, MongoDB)
//  6. [server] - Reference HTTP host for save and load
//  7. [render] - Graphviz previews in DOT, SVG, PNG and PDF
//  8. [cache] - Rendered preview cache
//
// Supporting packages: [config] (TOML configuration), [errors] (coded
// errors), [observability] (hooks and Prometheus metrics), [httputil]
// (retry helpers) and [buildinfo].
//
// # Data Flow
//
//	document (JSON)
//	      ↓
//	io.Import → diagram.Editor ← gesture.Controller (pointer input)
//	      ↓
//	io.Export → persist.Client → store.Store
//	      ↓
//	render/nodelink → SVG preview → cache
//
// [diagram]: github.com/checklistapp/diagram/pkg/diagram
// [gesture]: github.com/checklistapp/diagram/pkg/gesture
// [io]: github.com/checklistapp/diagram/pkg/io
// [persist]: github.com/checklistapp/diagram/pkg/persist
// [store]: github.com/checklistapp/diagram/pkg/store
// [server]: github.com/checklistapp/diagram/pkg/server
// [render]: github.com/checklistapp/diagram/pkg/render
// [cache]: github.com/checklistapp/diagram/pkg/cache
// [config]: github.com/checklistapp/diagram/pkg/config
// [errors]: github.com/checklistapp/diagram/pkg/errors
// [observability]: github.com/checklistapp/diagram/pkg/observability
// [httputil]: github.com/checklistapp/diagram/pkg/httputil
// [buildinfo]: github.com/checklistapp/diagram/pkg/buildinfo
package pkg
