// Package render converts diagram previews between output formats.
//
// The [nodelink] subpackage turns a document into Graphviz DOT and SVG.
// [ToPDF] and [ToPNG] convert that SVG further using the external
// rsvg-convert tool (from librsvg):
//
//	dot := nodelink.ToDOT(doc, nodelink.Options{Positioned: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [nodelink]: github.com/checklistapp/diagram/pkg/render/nodelink
package render
