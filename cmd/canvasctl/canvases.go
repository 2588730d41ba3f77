package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/client"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/engine"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/typeid"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your canvases and shared ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			list, err := c.ListCanvases(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				warn.Fprintln(out, "  No canvases yet. Save one with `canvasctl save`.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				owner := "shared"
				if s.IsOwn {
					owner = "own"
				}
				rows = append(rows, []string{s.ID, s.Name, owner, s.UpdatedAt})
			}
			table(out, []string{"ID", "Name", "Owner", "Updated"}, rows)
			return nil
		},
	}
}

// fetch accepts a canvas id or name.
func fetch(cmd *cobra.Command, c *client.Client, ref string) (document.Canvas, error) {
	if typeid.IsCanvasID(ref) {
		return c.GetCanvas(cmd.Context(), ref)
	}
	return c.GetCanvasByName(cmd.Context(), ref)
}

func (a *app) getCmd() *cobra.Command {
	var output string
	var dataOnly bool
	cmd := &cobra.Command{
		Use:   "get <id|name>",
		Short: "Print a stored canvas as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			canvas, err := fetch(cmd, c, args[0])
			if err != nil {
				return err
			}

			var v any = canvas
			if dataOnly {
				v = canvas.CanvasData
			}
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(output, cmd.OutOrStdout(), append(data, '\n'))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&dataOnly, "data", false, "Only print canvas_data")
	return cmd
}

func (a *app) saveCmd() *cobra.Command {
	var name string
	var sharable, overwrite bool
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Upload a canvas file under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			data, err := readCanvasFile(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			e := engine.NewEngine(engine.DefaultOptions())
			if err := e.Restore(data); err != nil {
				return fmt.Errorf("invalid canvas: %w", err)
			}
			mgr := persist.NewManager(c, e)
			summary, err := mgr.Save(cmd.Context(), persist.SaveOptions{Name: name, Sharable: sharable, Overwrite: overwrite})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s saved %s %s\n", statusIcon(true), brand.Sprint(summary.Name), subtle.Sprint(summary.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Canvas name")
	cmd.Flags().BoolVar(&sharable, "sharable", false, "Let other users open the canvas")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing canvas of the same name")
	cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|name>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored canvas",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			canvas, err := fetch(cmd, c, args[0])
			if err != nil {
				return err
			}
			if err := c.DeleteCanvas(cmd.Context(), canvas.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s deleted %s\n", statusIcon(true), canvas.Name)
			return nil
		},
	}
}
