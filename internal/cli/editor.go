package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/checklistapp/diagram/pkg/diagram"
	derrors "github.com/checklistapp/diagram/pkg/errors"
	"github.com/checklistapp/diagram/pkg/gesture"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/persist"
)

const defaultCursorStep = 10.0

var (
	editorHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	editorCursorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	editorStateStyle  = lipgloss.NewStyle().Foreground(colorYellow)
)

func (c *CLI) editCommand() *cobra.Command {
	var project, file string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a project interactively in the terminal",
		Long: `Edit a project interactively. The cursor is a pointer on the diagram:
pressing on a box drags it, pressing on a free anchor draws a new arrow,
and pressing on an anchor that already starts an arrow drags that arrow
off its target. Release over another anchor to connect, or elsewhere to
drop the arrow.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, closeFn, err := c.newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			var doc pkgio.GraphDocument
			switch {
			case file != "":
				doc, err = readDocument(file)
			case project != "":
				doc, _, err = client.Load(ctx, project)
				if derrors.Is(err, derrors.ErrCodeNotFound) {
					c.Logger.Info("new project, starting from the demo", "project", project)
					doc, err = pkgio.Demo(), nil
				}
			default:
				doc = pkgio.Demo()
			}
			if err != nil {
				return err
			}

			// The TUI owns the terminal; editor debug logs would tear it.
			opts := append(cfg.EditorOptions(), diagram.WithLogger(log.New(io.Discard)))
			e, rep := pkgio.Import(doc, opts...)
			c.printReport(rep)

			m := newEditorModel(ctx, e, client, project)
			defer m.ctrl.Close()
			final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(editorModel); ok && file != "" && fm.dirty {
				if err := pkgio.ExportJSON(pkgio.Export(e), file); err != nil {
					return err
				}
				c.printFile(file)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project to load and save")
	cmd.Flags().StringVarP(&file, "file", "f", "", "edit a document file instead (written back on quit)")
	return cmd
}

// saveDoneMsg carries the outcome of an asynchronous save.
type saveDoneMsg persist.Outcome

// editorModel is the bubbletea model of the interactive editor. The cursor
// is the pointer fed to the gesture controller.
type editorModel struct {
	ctx     context.Context
	ctrl    *gesture.Controller
	client  persist.Client
	project string

	cx, cy float64
	step   float64
	focus  int // index of the box the cursor last jumped to
	anchor int // compass index for anchor cycling

	status string
	err    error
	saving bool
	dirty  bool
}

func newEditorModel(ctx context.Context, e *diagram.Editor, client persist.Client, project string) editorModel {
	m := editorModel{
		ctx:     ctx,
		ctrl:    gesture.New(e),
		client:  client,
		project: project,
		step:    defaultCursorStep,
		focus:   -1,
	}
	if nodes := e.Nodes().Nodes(); len(nodes) > 0 {
		m.focus = 0
		m.cx, m.cy = e.Geometry().Center(nodes[0])
	}
	return m
}

func (m editorModel) Init() tea.Cmd {
	return nil
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case saveDoneMsg:
		m.saving = false
		if msg.Err != nil {
			m.err = msg.Err
			m.status = ""
		} else {
			m.err = nil
			m.status = fmt.Sprintf("Saved version %d", msg.Result.Version)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctrl.Cancel()
			return m, tea.Quit
		case "left", "h":
			return m.moveCursor(-m.step, 0), nil
		case "right", "l":
			return m.moveCursor(m.step, 0), nil
		case "up", "k":
			return m.moveCursor(0, -m.step), nil
		case "down", "j":
			return m.moveCursor(0, m.step), nil
		case "+", "=":
			m.step *= 2
		case "-":
			m.step = max(1, m.step/2)
		case "tab":
			return m.nextBox(), nil
		case "a":
			return m.nextAnchor(), nil
		case " ", "space", "enter":
			return m.toggle(), nil
		case "esc":
			m.ctrl.Cancel()
			m.status, m.err = "Cancelled", nil
		case "s":
			return m.save()
		}
	}
	return m, nil
}

func (m editorModel) moveCursor(dx, dy float64) editorModel {
	m.cx += dx
	m.cy += dy
	if err := m.ctrl.Move(m.cx, m.cy); err != nil {
		m.err = err
	}
	if m.ctrl.State() == gesture.DraggingNode {
		m.dirty = true
	}
	return m
}

// nextBox jumps the cursor to the centre of the next box.
func (m editorModel) nextBox() editorModel {
	nodes := m.ctrl.Editor().Nodes().Nodes()
	if len(nodes) == 0 {
		return m
	}
	m.focus = (m.focus + 1) % len(nodes)
	m.anchor = 0
	cx, cy := m.ctrl.Editor().Geometry().Center(nodes[m.focus])
	return m.moveCursor(cx-m.cx, cy-m.cy)
}

// nextAnchor moves the cursor onto the next anchor of the focused box.
func (m editorModel) nextAnchor() editorModel {
	nodes := m.ctrl.Editor().Nodes().Nodes()
	if m.focus < 0 || m.focus >= len(nodes) {
		return m
	}
	pos := diagram.Compasses()[m.anchor%diagram.AnchorCount]
	m.anchor++
	ax, ay := m.ctrl.Editor().Geometry().AnchorPoint(nodes[m.focus], pos)
	return m.moveCursor(ax-m.cx, ay-m.cy)
}

// toggle presses at the cursor when idle and releases otherwise.
func (m editorModel) toggle() editorModel {
	m.err = nil
	if m.ctrl.State() == gesture.Idle {
		if err := m.ctrl.Press(m.cx, m.cy); err != nil {
			m.err = derrors.FromCore(err)
			return m
		}
		m.status = m.ctrl.State().String()
		return m
	}
	out, err := m.ctrl.Release(m.cx, m.cy)
	if err != nil {
		m.err = derrors.FromCore(err)
	}
	if out.Kind != gesture.Abandoned {
		m.dirty = true
	}
	m.status = describeOutcome(out)
	return m
}

func describeOutcome(out gesture.Outcome) string {
	switch out.Kind {
	case gesture.Moved:
		return "Moved " + out.NodeID
	case gesture.Connected:
		return fmt.Sprintf("Connected %s %s %s", out.Connection.Source, iconArrow, out.Connection.Target)
	case gesture.Detached:
		return fmt.Sprintf("Detached %s %s %s", out.Connection.Source, iconArrow, out.Connection.Target)
	case gesture.Reconnected:
		return fmt.Sprintf("Reconnected %s %s %s", out.Connection.Source, iconArrow, out.Connection.Target)
	}
	return "Nothing changed"
}

func (m editorModel) save() (tea.Model, tea.Cmd) {
	switch {
	case m.saving:
		return m, nil
	case m.project == "":
		m.err = errors.New("no project to save to; start with --project")
		return m, nil
	case m.client == nil:
		m.err = errors.New("no persistence configured")
		return m, nil
	}
	m.saving, m.err = true, nil
	m.status = "Saving..."
	ch := persist.SaveAsync(m.ctx, m.client, m.project, pkgio.Export(m.ctrl.Editor()))
	return m, func() tea.Msg { return saveDoneMsg(<-ch) }
}

func (m editorModel) View() string {
	var b strings.Builder
	e := m.ctrl.Editor()

	title := "Diagram"
	if m.project != "" {
		title += " " + m.project
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(editorHelpStyle.Render("←↑↓→ move  tab next box  a next anchor  space press/release  esc cancel  s save  q quit"))
	b.WriteString("\n\n")

	cursor := fmt.Sprintf("cursor %s,%s (step %s)", fmtCoord(m.cx), fmtCoord(m.cy), fmtCoord(m.step))
	b.WriteString(editorCursorStyle.Render(cursor))
	b.WriteString("  ")
	b.WriteString(editorStateStyle.Render(m.ctrl.State().String()))
	if ref, ok := e.AnchorAt(m.cx, m.cy); ok {
		b.WriteString(StyleDim.Render("  on anchor " + ref.String()))
	} else if n, ok := e.NodeAt(m.cx, m.cy); ok {
		b.WriteString(StyleDim.Render("  on box " + n.ID))
	}
	b.WriteString("\n\n")

	var rows [][]string
	for _, n := range e.Nodes().Nodes() {
		marker := ""
		if e.Geometry().Contains(n, m.cx, m.cy) {
			marker = "▸"
		}
		rows = append(rows, []string{marker, n.ID, n.Label, fmtCoord(n.X) + "," + fmtCoord(n.Y)})
	}
	b.WriteString(renderTable([]string{"", "Box", "Label", "Position"}, rows))
	b.WriteString("\n")

	rows = rows[:0]
	for _, conn := range e.Conns().Connections() {
		rows = append(rows, []string{conn.Source.String(), conn.Target.String(), conn.Label})
	}
	b.WriteString(renderTable([]string{"Source", "Target", "Label"}, rows))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(StyleError.Render(iconError + " " + derrors.UserMessage(m.err)))
	case m.status != "":
		b.WriteString(styleIconSuccess.Render(iconInfo) + " " + m.status)
	}
	if ev := m.ctrl.Last(); ev.Kind != 0 {
		b.WriteString(StyleDim.Render("  last event: " + ev.Kind.String()))
	}
	b.WriteString("\n")
	return b.String()
}
