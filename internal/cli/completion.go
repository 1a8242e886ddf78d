package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/checklistapp/diagram/pkg/diagram"
	pkgio "github.com/checklistapp/diagram/pkg/io"
)

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for diagram and write it to stdout.

  $ source <(diagram completion bash)
  $ diagram completion zsh > "${fpath[1]}/_diagram"
  $ diagram completion fish > ~/.config/fish/completions/diagram.fish
  PS> diagram completion powershell | Out-String | Invoke-Expression

Completion covers box IDs and anchors (box:POS) for connect, and the
--format values of the dot command.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(c.out, true)
			case "zsh":
				return root.GenZshCompletion(c.out)
			case "fish":
				return root.GenFishCompletion(c.out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(c.out)
			}
		},
	}
}

// completeFormats completes the last element of a comma-separated
// --format value.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, last = toComplete[:i+1], toComplete[i+1:]
	}
	var out []string
	for _, f := range []string{formatDOT, formatSVG, formatPNG, formatPDF} {
		if strings.HasPrefix(f, last) {
			out = append(out, prefix+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeEndpoints completes the source and target of connect from the
// boxes in the document named by the first argument.
func completeEndpoints(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return nil, cobra.ShellCompDirectiveDefault
	case 1, 2:
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	doc, err := pkgio.ImportJSON(args[0])
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return endpointCandidates(doc, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// endpointCandidates lists box IDs, or the eight anchors of a box once a
// colon has been typed.
func endpointCandidates(doc pkgio.GraphDocument, toComplete string) []string {
	var out []string
	if id, _, ok := strings.Cut(toComplete, ":"); ok {
		for _, c := range diagram.Compasses() {
			ref := id + ":" + c.String()
			if strings.HasPrefix(ref, toComplete) {
				out = append(out, ref)
			}
		}
		return out
	}
	for _, b := range doc.Boxes {
		if strings.HasPrefix(b.ID, toComplete) {
			out = append(out, b.ID)
		}
	}
	return out
}
