package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	Workspace  string
}

// EnsureFlags holds flags for the ensure command.
type EnsureFlags struct {
	StartTimeout time.Duration
}

// buildRoot creates the root command and wires the subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	ensureFlags := &EnsureFlags{}

	stokerCommand := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createEnsureCommand(stokerCommand, ensureFlags),
		createStatusCommand(stokerCommand),
		createVerifyCommand(stokerCommand),
		createShutdownCommand(stokerCommand),
		createServeCommand(stokerCommand),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "stoker",
		Short: "Per-workspace worker daemon manager",
		Long: `Stoker keeps one long-lived worker daemon per workspace and reconnects
to it across invocations. A worker is only ever reused when its recorded
process identity (PID plus kernel start-time token) still matches the live
process, so a recycled PID can never be mistaken for the original worker.

Examples:
  stoker ensure                       # Verify or (re)start the workspace worker
  stoker status                       # Ask the running worker for its self-report
  stoker verify                       # Print the identity verdict without spawning
  stoker shutdown                     # Stop the workspace worker`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.Workspace, "workspace", "", "workspace directory (default: current directory)")

	return root
}

func createEnsureCommand(c command, flags *EnsureFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ensure",
		Aliases: []string{"run"},
		Short:   "Verify the workspace worker, spawning a replacement if needed",
		Long: `Verify that the recorded worker still exists and is the original process.
A verified worker is reused; a missing, dead or impostor worker is replaced
by a freshly spawned one, and the command waits until it is ready.

Examples:
  stoker ensure
  stoker ensure --workspace /work/project --start-timeout 1m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Ensure(cmd.Context(), flags.StartTimeout)
		},
	}

	cmd.Flags().DurationVar(&flags.StartTimeout, "start-timeout", 30*time.Second, "how long to wait for a spawned worker to become ready")

	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the running worker's self-report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(cmd.Context())
		},
	}
}

func createVerifyCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Print the identity verdict for the recorded worker",
		Long: `Check whether the recorded PID still refers to the worker that wrote the
identity record. Prints fresh, stale or indeterminate; never spawns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Verify()
		},
	}
}

func createShutdownCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the workspace worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Shutdown(cmd.Context())
		},
	}
}

func createServeCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:    "serve",
		Short:  "Run the worker in the foreground",
		Long:   `Run the worker side of the protocol in this process. Normally invoked by "stoker ensure" rather than by hand.`,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve()
		},
	}
}
