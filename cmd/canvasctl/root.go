package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerdfunk-net/noc-canvas-sub000/internal/cliconfig"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/client"
	"github.com/nerdfunk-net/noc-canvas-sub000/internal/document"
)

var errNotLoggedIn = errors.New("not logged in, run `canvasctl login` first")

type app struct {
	cfgPath string
	server  string
	cfg     *cliconfig.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "canvasctl",
		Short:         "Manage NOC canvases",
		Long:          brand.Sprint("canvasctl") + " saves, loads, views and exports network topology canvases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliconfig.Load(a.cfgPath)
			if err != nil {
				return err
			}
			if a.server != "" {
				cfg.Server = a.server
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", cliconfig.Path(), "Config file")
	root.PersistentFlags().StringVar(&a.server, "server", "", "Server URL (overrides config)")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.listCmd(),
		a.getCmd(),
		a.saveCmd(),
		a.deleteCmd(),
		a.validateCmd(),
		a.sampleCmd(),
		a.exportCmd(),
		a.viewCmd(),
	)

	return root
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.Server, client.WithToken(a.cfg.Token))
}

func (a *app) authedClient() (*client.Client, error) {
	if a.cfg.Token == "" {
		return nil, errNotLoggedIn
	}
	return a.client(), nil
}

// readCanvasFile loads a payload from path, or stdin for "-". Both bare
// canvas data and a full stored canvas are accepted.
func readCanvasFile(path string, stdin io.Reader) (document.CanvasData, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return document.CanvasData{}, err
	}

	var wrapped struct {
		CanvasData *document.CanvasData `json:"canvas_data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return document.CanvasData{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if wrapped.CanvasData != nil {
		return *wrapped.CanvasData, nil
	}

	var data document.CanvasData
	if err := json.Unmarshal(raw, &data); err != nil {
		return document.CanvasData{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
