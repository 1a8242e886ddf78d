package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/render"
)

// pointsPerInch converts diagram pixels to Graphviz inches.
const pointsPerInch = 72.0

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed appends each box's description to its label.
	Detailed bool

	// Positioned pins boxes to their X/Y coordinates. When false Graphviz
	// computes a left-to-right layout.
	Positioned bool
}

// ToDOT converts a document to Graphviz DOT. Arrow labels are rendered as
// edge labels. Arrows whose endpoints are not boxes of the document are
// skipped.
func ToDOT(doc pkgio.GraphDocument, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.Positioned {
		buf.WriteString("  layout=neato;\n")
		buf.WriteString("  splines=true;\n")
	} else {
		buf.WriteString("  rankdir=LR;\n")
		buf.WriteString("  ranksep=0.8;\n")
		buf.WriteString("  nodesep=0.4;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("\n")

	known := make(map[string]bool, len(doc.Boxes))
	for _, b := range doc.Boxes {
		known[b.ID] = true
		fmt.Fprintf(&buf, "  %q [%s];\n", b.ID, strings.Join(fmtAttrs(b, opts), ", "))
	}

	buf.WriteString("\n")
	for _, a := range doc.Arrows {
		if !known[a.Source] || !known[a.Target] {
			continue
		}
		if a.Label == "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", a.Source, a.Target)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", a.Source, a.Target, a.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(b pkgio.Box, detailed bool) string {
	label := b.Label
	if label == "" {
		label = b.ID
	}
	if detailed && b.Description != "" {
		label += "\n" + b.Description
	}
	return label
}

func fmtAttrs(b pkgio.Box, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(b, opts.Detailed))}
	if opts.Positioned {
		// Graphviz y grows upward.
		attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", inches(b.X), inches(-b.Y)))
	}
	return attrs
}

func inches(px float64) string {
	if px == 0 {
		return "0.00"
	}
	return strconv.FormatFloat(px/pointsPerInch, 'f', 2, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// A graph declaring layout=neato is laid out with the neato engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if strings.Contains(dot, "layout=neato") {
		gv.SetLayout(graphviz.NEATO)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion. A scale of 2.0
// produces a 2x resolution image.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
