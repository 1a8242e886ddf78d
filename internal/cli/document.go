package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/checklistapp/diagram/pkg/diagram"
	derrors "github.com/checklistapp/diagram/pkg/errors"
	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// stdio is the path that selects stdin or stdout.
const stdio = "-"

// readDocument reads a JSON document from path, or stdin for "-".
func readDocument(path string) (pkgio.GraphDocument, error) {
	if path == stdio {
		return pkgio.ReadJSON(os.Stdin)
	}
	return pkgio.ImportJSON(path)
}

// writeDocument writes doc to path, or to the command output for "-".
func (c *CLI) writeDocument(doc pkgio.GraphDocument, path string) error {
	if path == stdio {
		return pkgio.WriteJSON(doc, c.out)
	}
	return pkgio.ExportJSON(doc, path)
}

// openEditor loads the document at path into a new editor configured from
// the config file.
func (c *CLI) openEditor(ctx context.Context, path string) (*diagram.Editor, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	e, rep := pkgio.Import(doc, editorOptions(ctx, cfg)...)
	c.printReport(rep)
	return e, nil
}

// mutateCommand builds a command that applies one mutation to a document file
// and writes the result to --output, or back to the file.
func (c *CLI) mutateCommand(use, short string, args cobra.PositionalArgs, mutate func(*diagram.Editor, []string) (string, error)) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			e, err := c.openEditor(cmd.Context(), path)
			if err != nil {
				return err
			}
			msg, err := mutate(e, args[1:])
			if err != nil {
				return derrors.FromCore(err)
			}
			if err := e.CheckInvariants(); err != nil {
				return derrors.FromCore(err)
			}
			dst := output
			if dst == "" {
				dst = path
			}
			if err := c.writeDocument(pkgio.Export(e), dst); err != nil {
				return err
			}
			if dst != stdio {
				c.printSuccess("%s", msg)
				c.printFile(dst)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of in place (- for stdout)")
	return cmd
}

// =============================================================================
// Read-only commands
// =============================================================================

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a document strictly and report what an import would drop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			e, rep := pkgio.Import(doc, editorOptions(cmd.Context(), cfg)...)
			if err := e.CheckInvariants(); err != nil {
				return derrors.FromCore(err)
			}
			c.printReport(rep)
			if err := doc.Validate(); err != nil {
				c.printError("%s", derrors.UserMessage(err))
				return err
			}
			if err := rep.Err(); err != nil {
				return err
			}
			c.printSuccess("%s is valid", args[0])
			c.printStats(doc)
			return nil
		},
	}
}

func (c *CLI) exportCommand() *cobra.Command {
	var (
		output string
		demo   bool
	)
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Normalize a document through the editor, or write the demo document",
		Args: func(cmd *cobra.Command, args []string) error {
			if demo {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc pkgio.GraphDocument
			if demo {
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				e, _ := pkgio.Import(pkgio.Demo(), editorOptions(cmd.Context(), cfg)...)
				doc = pkgio.Export(e)
			} else {
				e, err := c.openEditor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				doc = pkgio.Export(e)
			}
			return c.writeDocument(doc, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", stdio, "output file (- for stdout)")
	cmd.Flags().BoolVar(&demo, "demo", false, "export the built-in demo document")
	return cmd
}

func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show boxes, anchors and connections as tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.openEditor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.printInspect(e)
			return nil
		},
	}
}

func (c *CLI) printInspect(e *diagram.Editor) {
	fmt.Fprintln(c.out, StyleTitle.Render("Boxes"))
	var rows [][]string
	for _, n := range e.Nodes().Nodes() {
		anchors, _ := e.Anchors().AnchorsOf(n.ID)
		var locked []string
		for _, a := range anchors {
			if !a.SourceEnabled {
				locked = append(locked, a.Ref.Position.String())
			}
		}
		lockedStr := styleFree.Render("none")
		if len(locked) > 0 {
			lockedStr = styleLocked.Render(strings.Join(locked, " "))
		}
		rows = append(rows, []string{n.ID, n.Label, fmtCoord(n.X) + "," + fmtCoord(n.Y), lockedStr})
	}
	c.printTable([]string{"ID", "Label", "Position", "Locked anchors"}, rows)

	fmt.Fprintln(c.out, StyleTitle.Render("Connections"))
	rows = rows[:0]
	for _, conn := range e.Conns().Connections() {
		rows = append(rows, []string{conn.Source.String(), conn.Target.String(), conn.Label})
	}
	c.printTable([]string{"Source", "Target", "Label"}, rows)
}

func fmtCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// =============================================================================
// Mutating commands
// =============================================================================

func (c *CLI) addCommand() *cobra.Command {
	var (
		id, label, description string
		x, y                   float64
	)
	cmd := c.mutateCommand("add [file]", "Add a box", cobra.ExactArgs(1),
		func(e *diagram.Editor, _ []string) (string, error) {
			boxID := id
			if boxID == "" {
				boxID = uuid.NewString()
			}
			if err := derrors.ValidateLabel(label); err != nil {
				return "", err
			}
			if err := e.AddNode(diagram.Node{ID: boxID, Label: label, Description: description, X: x, Y: y}); err != nil {
				return "", err
			}
			return "added box " + boxID, nil
		})
	cmd.Flags().StringVar(&id, "id", "", "box ID (default: random UUID)")
	cmd.Flags().StringVar(&label, "label", "", "box label")
	cmd.Flags().StringVar(&description, "description", "", "box description")
	cmd.Flags().Float64Var(&x, "x", 0, "left edge")
	cmd.Flags().Float64Var(&y, "y", 0, "top edge")
	return cmd
}

func (c *CLI) removeCommand() *cobra.Command {
	return c.mutateCommand("remove [file] [box]", "Remove a box and every arrow touching it", cobra.ExactArgs(2),
		func(e *diagram.Editor, args []string) (string, error) {
			before := e.Conns().Len()
			if err := e.RemoveNode(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("removed box %s and %d arrows", args[0], before-e.Conns().Len()), nil
		})
}

func (c *CLI) moveCommand() *cobra.Command {
	return c.mutateCommand("move [file] [box] [x] [y]", "Move a box", cobra.ExactArgs(4),
		func(e *diagram.Editor, args []string) (string, error) {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return "", derrors.Wrap(derrors.ErrCodeInvalidInput, err, "x")
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return "", derrors.Wrap(derrors.ErrCodeInvalidInput, err, "y")
			}
			if err := e.MoveNode(args[0], x, y); err != nil {
				return "", err
			}
			return fmt.Sprintf("moved %s to %s,%s", args[0], fmtCoord(x), fmtCoord(y)), nil
		})
}

func (c *CLI) connectCommand() *cobra.Command {
	var label string
	cmd := c.mutateCommand("connect [file] [source] [target]", "Connect two boxes or anchors (box or box:POS)", cobra.ExactArgs(3),
		func(e *diagram.Editor, args []string) (string, error) {
			conn, err := connect(e, args[0], args[1], label)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("connected %s -> %s", conn.Source, conn.Target), nil
		})
	cmd.Flags().StringVar(&label, "label", "", "arrow label")
	cmd.ValidArgsFunction = completeEndpoints
	return cmd
}

// connect accepts node IDs or anchor references. Node IDs are connected
// through facing anchors; explicit anchors are used as given.
func connect(e *diagram.Editor, source, target, label string) (diagram.Connection, error) {
	if !strings.Contains(source, ":") && !strings.Contains(target, ":") {
		return pkgio.ConnectNodes(e, source, target, label)
	}
	src, err := parseEndpoint(e, source, target, true)
	if err != nil {
		return diagram.Connection{}, err
	}
	dst, err := parseEndpoint(e, target, source, false)
	if err != nil {
		return diagram.Connection{}, err
	}
	return e.Connect(src, dst, label)
}

// parseEndpoint resolves "box:POS" directly and a bare box ID to the anchor
// facing the other endpoint's box.
func parseEndpoint(e *diagram.Editor, s, other string, isSource bool) (diagram.AnchorRef, error) {
	if strings.Contains(s, ":") {
		return diagram.ParseAnchorRef(s)
	}
	n, err := e.Nodes().Get(s)
	if err != nil {
		return diagram.AnchorRef{}, err
	}
	otherID, _, _ := strings.Cut(other, ":")
	o, err := e.Nodes().Get(otherID)
	if err != nil {
		return diagram.AnchorRef{}, err
	}
	ranked := e.Geometry().RankAnchors(n, o)
	if isSource {
		for _, pos := range ranked {
			ref := diagram.AnchorRef{NodeID: n.ID, Position: pos}
			if a, err := e.Anchors().Get(ref); err == nil && a.SourceEnabled {
				return ref, nil
			}
		}
		return diagram.AnchorRef{}, fmt.Errorf("no free anchor on %s: %w", n.ID, diagram.ErrSourceDisabled)
	}
	return diagram.AnchorRef{NodeID: n.ID, Position: ranked[0]}, nil
}

func (c *CLI) detachCommand() *cobra.Command {
	var label string
	cmd := c.mutateCommand("detach [file] [source] [target]", "Remove the arrow from one box to another", cobra.ExactArgs(3),
		func(e *diagram.Editor, args []string) (string, error) {
			for _, conn := range e.Conns().Connections() {
				if conn.Source.NodeID != args[0] || conn.Target.NodeID != args[1] {
					continue
				}
				if label != "" && conn.Label != label {
					continue
				}
				if err := e.Conns().CanDetach(conn.ID); err != nil {
					return "", err
				}
				if err := e.Detach(conn.ID); err != nil {
					return "", err
				}
				return fmt.Sprintf("detached %s -> %s", conn.Source, conn.Target), nil
			}
			return "", fmt.Errorf("arrow %s -> %s: %w", args[0], args[1], diagram.ErrNotFound)
		})
	cmd.Flags().StringVar(&label, "label", "", "only detach the arrow with this label")
	return cmd
}
