package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/render/nodelink"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
	formatPDF = "pdf"

	defaultPNGScale = 2.0
)

// renderOpts holds the command-line flags for the dot command.
type renderOpts struct {
	output     string   // output file path (or base path for multiple outputs)
	formats    []string // output formats: "dot", "svg", "png", "pdf"
	detailed   bool     // include box descriptions in labels
	positioned bool     // pin boxes at their document coordinates
	demo       bool     // render the demo document instead of a file
	scale      float64  // PNG scale factor
}

func (c *CLI) dotCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{positioned: true, scale: defaultPNGScale}

	cmd := &cobra.Command{
		Use:     "dot [file]",
		Aliases: []string{"render"},
		Short:   "Render a document as Graphviz DOT, SVG, PNG or PDF",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.demo {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			return c.runRender(cmd.Context(), input, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple); - for stdout")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): dot (default), svg, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include box descriptions")
	cmd.Flags().BoolVar(&opts.positioned, "positioned", opts.positioned, "keep boxes at their document positions")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "render the built-in demo document")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// parseFormats parses the --format flag. If empty, defaults to ["dot"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatDOT}
	}
	return strings.Split(s, ",")
}

var validFormats = map[string]bool{formatDOT: true, formatSVG: true, formatPNG: true, formatPDF: true}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'png', or 'pdf')", f)
		}
	}
	return nil
}

// basePath derives the base output path. If output is empty, it strips the
// extension from input; a known format extension on output is stripped too.
func basePath(output, input string) string {
	if output == "" {
		if input == "" {
			return "demo"
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	doc := pkgio.Demo()
	if !opts.demo {
		var err error
		if doc, err = readDocument(input); err != nil {
			return err
		}
	}
	logger.Debugf("Loaded document: %d boxes, %d arrows", len(doc.Boxes), len(doc.Arrows))
	dot := nodelink.ToDOT(doc, nodelink.Options{Detailed: opts.detailed, Positioned: opts.positioned})

	for _, format := range opts.formats {
		data, err := renderDOT(ctx, dot, format, opts.scale)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		path := opts.output
		if path == "" || len(opts.formats) > 1 {
			path = basePath(opts.output, input) + "." + format
		}
		if err := c.writeOutput(path, data); err != nil {
			return err
		}
		logger.Debugf("Generated %s: %d bytes", format, len(data))
		if path != stdio {
			c.printFile(path)
		}
	}
	return nil
}

func renderDOT(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(dot), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot, scale)
	case formatPDF:
		return nodelink.RenderPDF(ctx, dot)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func (c *CLI) writeOutput(path string, data []byte) error {
	out, err := openOutput(path, c.out)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(data)
	return err
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing, or returns stdout for "-".
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == stdio {
		return nopCloser{stdout}, nil
	}
	return os.Create(path)
}
