package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/artpar/lnstack/internal/core/compose"
	"github.com/artpar/lnstack/internal/core/domain"
	"github.com/spf13/cobra"
)

// cli carries state shared by every command.
type cli struct {
	configPath string
	cfg        *Config
	app        *App
	out        io.Writer
	errOut     io.Writer
}

// newRootCmd builds the command tree writing command output to out and logs
// to errOut. The returned function releases whatever the command opened.
func newRootCmd(out, errOut io.Writer) (*cobra.Command, func()) {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "lnstack",
		Short:         "Run simulated Lightning Network clusters with docker compose",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.configPath)
			if err != nil {
				return &AppError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
			}
			c.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file")

	root.AddCommand(
		c.versionCmd(),
		c.createCmd(),
		c.listCmd(),
		c.composeCmd(),
		c.validateCmd(),
		c.networkCmd("start", "Start every node of a network", c.runStart),
		c.networkCmd("stop", "Stop every node of a network", c.runStop),
		c.nodeCmd("start-node", "Start a single node", c.runStartNode),
		c.nodeCmd("stop-node", "Stop a single node", c.runStopNode),
		c.nodeCmd("remove-node", "Stop and remove a node from a network", c.runRemoveNode),
		c.versionsCmd(),
		c.imagesCmd(),
		c.serveCmd(),
	)
	cleanup := func() {
		if c.app != nil {
			c.app.Close()
			c.app = nil
		}
	}
	return root, cleanup
}

// ensureApp wires the services on first use.
func (c *cli) ensureApp() (*App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := NewApp(c.cfg, SetupLogger(c.cfg, c.errOut))
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

func parseNetworkID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, &AppError{Op: "parse", Err: fmt.Errorf("invalid network id %q", arg), ExitCode: ExitConfigError}
	}
	return id, nil
}

func commandFailed(op string, err error) error {
	return &AppError{Op: op, Err: err, ExitCode: ExitCommandError}
}

// =============================================================================
// Info Commands
// =============================================================================

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lnstack version",
		Args:  cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.out, "lnstack %s (built %s)\n", Version, BuildTime)
		},
	}
}

func (c *cli) versionsCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Show the Docker engine and compose versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			v, err := app.executor.GetVersions(cmd.Context(), strict)
			if err != nil {
				return &AppError{Op: "versions", Err: err, ExitCode: ExitDockerError}
			}
			fmt.Fprintf(c.out, "docker:  %s\ncompose: %s\n", orNone(v.Docker), orNone(v.Compose))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when either version cannot be queried")
	return cmd
}

func (c *cli) imagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List image tags known to the Docker engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			for _, tag := range app.executor.GetImages(cmd.Context()) {
				fmt.Fprintln(c.out, tag)
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(unavailable)"
	}
	return s
}

// =============================================================================
// Network Commands
// =============================================================================

func (c *cli) createCmd() *cobra.Command {
	var spec domain.NetworkSpec
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a network and write its compose manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			n, err := app.networks.Create(cmd.Context(), args[0], spec)
			if err != nil {
				return commandFailed("create", err)
			}
			fmt.Fprintf(c.out, "created network %d %q at %s\n", n.ID, n.Name, n.Path)
			return nil
		},
	}
	cmd.Flags().IntVar(&spec.Bitcoind, "bitcoind", 1, "Number of bitcoind nodes")
	cmd.Flags().IntVar(&spec.LND, "lnd", 2, "Number of LND nodes")
	cmd.Flags().IntVar(&spec.CLightning, "clightning", 0, "Number of c-lightning nodes")
	cmd.Flags().IntVar(&spec.Eclair, "eclair", 0, "Number of eclair nodes")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			list, err := app.networks.List(cmd.Context())
			if err != nil {
				return commandFailed("list", err)
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tNODES\tPATH")
			for _, n := range list {
				names := make([]string, 0, len(n.AllNodes()))
				for _, node := range n.AllNodes() {
					names = append(names, node.Name)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, n.Name, n.Status, strings.Join(names, ","), n.Path)
			}
			return w.Flush()
		},
	}
}

func (c *cli) composeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compose <network-id>",
		Short: "Print the compose manifest of a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNetworkID(args[0])
			if err != nil {
				return err
			}
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			text, err := app.networks.Manifest(cmd.Context(), id)
			if err != nil {
				return commandFailed("compose", err)
			}
			fmt.Fprint(c.out, text)
			return nil
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <docker-compose.yml>",
		Short: "Validate a compose manifest and list its services in start order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &AppError{Op: "validate", Err: err, ExitCode: ExitConfigError}
			}
			parsed, err := compose.ParseManifest(string(data))
			if err != nil {
				return commandFailed("validate", err)
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tCONTAINER\tIMAGE\tDEPENDS ON")
			for _, svc := range compose.StartOrder(parsed.Services) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", svc.Name, svc.ContainerName, svc.Image, strings.Join(svc.DependsOn, ","))
			}
			return w.Flush()
		},
	}
}

// =============================================================================
// Lifecycle Commands
// =============================================================================

type networkRun func(cmd *cobra.Command, app *App, id int) (domain.Network, error)

type nodeRun func(cmd *cobra.Command, app *App, id int, name string) (domain.Network, error)

func (c *cli) networkCmd(use, short string, run networkRun) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <network-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNetworkID(args[0])
			if err != nil {
				return err
			}
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			n, err := run(cmd, app, id)
			if err != nil {
				return commandFailed(use, err)
			}
			fmt.Fprintf(c.out, "network %d %s\n", n.ID, strings.ToLower(string(n.Status)))
			return nil
		},
	}
}

func (c *cli) nodeCmd(use, short string, run nodeRun) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <network-id> <node>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNetworkID(args[0])
			if err != nil {
				return err
			}
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			if _, err := run(cmd, app, id, args[1]); err != nil {
				return commandFailed(use, err)
			}
			fmt.Fprintf(c.out, "%s: %s done\n", args[1], use)
			return nil
		},
	}
}

func (c *cli) runStart(cmd *cobra.Command, app *App, id int) (domain.Network, error) {
	ctx, cancel := app.commandContext(cmd.Context())
	defer cancel()
	return app.networks.Start(ctx, id)
}

func (c *cli) runStop(cmd *cobra.Command, app *App, id int) (domain.Network, error) {
	ctx, cancel := app.commandContext(cmd.Context())
	defer cancel()
	return app.networks.Stop(ctx, id)
}

func (c *cli) runStartNode(cmd *cobra.Command, app *App, id int, name string) (domain.Network, error) {
	ctx, cancel := app.commandContext(cmd.Context())
	defer cancel()
	return app.networks.StartNode(ctx, id, name)
}

func (c *cli) runStopNode(cmd *cobra.Command, app *App, id int, name string) (domain.Network, error) {
	ctx, cancel := app.commandContext(cmd.Context())
	defer cancel()
	return app.networks.StopNode(ctx, id, name)
}

func (c *cli) runRemoveNode(cmd *cobra.Command, app *App, id int, name string) (domain.Network, error) {
	ctx, cancel := app.commandContext(cmd.Context())
	defer cancel()
	return app.networks.RemoveNode(ctx, id, name)
}

// =============================================================================
// Serve Command
// =============================================================================

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			return NewServer(c.cfg, app).Start(cmd.Context())
		},
	}
}
