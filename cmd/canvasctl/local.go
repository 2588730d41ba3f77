package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/engine"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/export"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/persist"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/tui"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a canvas file for dangling links and duplicate ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCanvasFile(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			data.Normalize()
			out := cmd.OutOrStdout()
			if err := data.Validate(); err != nil {
				fmt.Fprintf(out, "  %s %s\n", statusIcon(false), err)
				return fmt.Errorf("%s is not a valid canvas", args[0])
			}
			fmt.Fprintf(out, "  %s %d devices, %d connections, %d shapes\n",
				statusIcon(true), len(data.Devices), len(data.Connections), len(data.Shapes))
			return nil
		},
	}
}

func (a *app) sampleCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the sample topology as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(document.NewSampleCanvas(), "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(output, cmd.OutOrStdout(), append(data, '\n'))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var output string
	var width, height int
	var hidden []string
	var remote bool
	cmd := &cobra.Command{
		Use:   "export <file|id|name>",
		Short: "Render a canvas to SVG",
		Long: "Render a canvas to SVG. A local file is rendered in-process; anything\n" +
			"else is fetched from the server first. --remote renders on the server.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.resolveData(cmd, args[0])
			if err != nil {
				return err
			}
			if width == 0 {
				width = a.cfg.Export.Width
			}
			if height == 0 {
				height = a.cfg.Export.Height
			}

			var svg []byte
			if remote {
				svg, err = a.client().ExportSVG(cmd.Context(), data, width, height)
			} else {
				opts := export.DefaultOptions()
				opts.Width, opts.Height = float64(width), float64(height)
				opts.Hidden = hidden
				svg, err = export.SVG(data, opts)
			}
			if err != nil {
				return err
			}
			return writeOutput(output, cmd.OutOrStdout(), svg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().IntVar(&width, "width", 0, "Image width (config default when 0)")
	cmd.Flags().IntVar(&height, "height", 0, "Image height (config default when 0)")
	cmd.Flags().StringSliceVar(&hidden, "hide", nil, "Render layers to leave out")
	cmd.Flags().BoolVar(&remote, "remote", false, "Render on the server")
	return cmd
}

// resolveData reads ref as a file if it exists, otherwise fetches it.
func (a *app) resolveData(cmd *cobra.Command, ref string) (document.CanvasData, error) {
	if ref == "-" || fileExists(ref) {
		return readCanvasFile(ref, cmd.InOrStdin())
	}
	c, err := a.authedClient()
	if err != nil {
		return document.CanvasData{}, err
	}
	canvas, err := fetch(cmd, c, ref)
	if err != nil {
		return document.CanvasData{}, err
	}
	return canvas.CanvasData, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (a *app) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [file|id|name]",
		Short: "Browse and rearrange a canvas in the terminal",
		Long: "Opens a canvas in a terminal viewer. Drag devices with the mouse,\n" +
			"arrows move the selection or pan, +/- zoom, f fits, 2/3 toggle link\n" +
			"layers, c connects two selected devices, s saves, q quits.\n" +
			"Without an argument the sample topology is shown.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.DefaultOptions()
			opts.SnapToGrid = a.cfg.Viewer.SnapToGrid
			e := engine.NewEngine(opts)

			title, save, err := a.openForView(cmd, e, args)
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init screen: %w", err)
			}
			defer screen.Fini()

			e.FitToContent()
			tui.New(screen, e, title, save).Run()
			return nil
		},
	}
}

func (a *app) openForView(cmd *cobra.Command, e *engine.Engine, args []string) (string, tui.SaveFunc, error) {
	if len(args) == 0 {
		return "sample", nil, e.LoadSample()
	}

	ref := args[0]
	if fileExists(ref) {
		data, err := readCanvasFile(ref, nil)
		if err != nil {
			return "", nil, err
		}
		if err := e.Restore(data); err != nil {
			return "", nil, err
		}
		save := func() (string, error) {
			out, err := json.MarshalIndent(e.Snapshot(), "", "  ")
			if err != nil {
				return "", err
			}
			if err := os.WriteFile(ref, append(out, '\n'), 0o644); err != nil {
				return "", err
			}
			return "wrote " + ref, nil
		}
		return ref, save, nil
	}

	c, err := a.authedClient()
	if err != nil {
		return "", nil, err
	}
	canvas, err := fetch(cmd, c, ref)
	if err != nil {
		return "", nil, err
	}
	mgr := persist.NewManager(c, e)
	if _, err := mgr.Load(cmd.Context(), canvas.ID, true); err != nil {
		return "", nil, err
	}
	save := func() (string, error) {
		if !mgr.Dirty() {
			return "no changes", nil
		}
		if err := mgr.SaveCurrent(cmd.Context()); err != nil {
			return "", err
		}
		return "saved " + canvas.Name, nil
	}
	return canvas.Name, save, nil
}
