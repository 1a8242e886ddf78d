package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/checklistapp/diagram/pkg/config"
	derrors "github.com/checklistapp/diagram/pkg/errors"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/persist"
)

func (c *CLI) saveCommand() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save a document as the next version of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			e, err := c.openEditor(ctx, args[0])
			if err != nil {
				return err
			}
			client, closeFn, err := c.newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			prog := newProgress(c.Logger, "project", project, "backend", storeBackend(cfg))
			spinner := newSpinner(ctx, c.out, fmt.Sprintf("Saving project %s...", project))
			spinner.Start()
			out := <-persist.SaveAsync(ctx, client, project, pkgio.Export(e))
			if out.Err != nil {
				spinner.StopWithError(derrors.UserMessage(out.Err))
				return out.Err
			}
			spinner.StopWithSuccess(fmt.Sprintf("Saved project %s", project))
			c.printKeyValue("Target", storeBackend(cfg))
			if out.Result.Version > 0 {
				c.printKeyValue("Version", strconv.Itoa(out.Result.Version))
			}
			prog.done("save complete", "version", out.Result.Version)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project ID")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (c *CLI) loadCommand() *cobra.Command {
	var project, output string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the current version of a project",
		Args:  cobra.NoArgs,
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

			doc, res, err := client.Load(ctx, project)
			if err != nil {
				return err
			}
			c.Logger.Debug("loaded", "project", project, "version", res.Version)
			if err := c.writeDocument(doc, output); err != nil {
				return err
			}
			if output != stdio {
				c.printSuccess("Loaded project %s (version %d)", project, res.Version)
				c.printStats(doc)
				c.printFile(output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project ID")
	cmd.Flags().StringVarP(&output, "output", "o", stdio, "output file (- for stdout)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (c *CLI) versionsCommand() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the saved versions of a project in the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg.Store)
			if err != nil {
				return derrors.Wrap(derrors.ErrCodePersistence, err, "open %s store", cfg.Store.Backend)
			}
			defer st.Close()

			vs, err := persist.NewStoreClient(st, c.Logger).Versions(ctx, project)
			if err != nil {
				return err
			}
			if len(vs) == 0 {
				c.printInfo("No versions saved for %s", project)
				return nil
			}
			rows := make([][]string, 0, len(vs))
			for _, v := range vs {
				rows = append(rows, []string{
					strconv.Itoa(v.Number),
					v.SavedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(v.Boxes),
					strconv.Itoa(v.Arrows),
					v.Checksum[:min(12, len(v.Checksum))],
				})
			}
			c.printTable([]string{"Version", "Saved", "Boxes", "Arrows", "Checksum"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project ID")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// storeBackend describes where a config sends documents, for display.
func storeBackend(cfg config.Config) string {
	if cfg.Persist.URL != "" {
		return cfg.Persist.URL
	}
	if cfg.Store.Backend == config.BackendFile && cfg.Store.Dir != "" {
		return cfg.Store.Backend + " " + cfg.Store.Dir
	}
	return cfg.Store.Backend
}
