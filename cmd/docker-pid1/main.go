package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moby/sys/reexec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/etiktin/docker-pid1/internal/roles"
)

// To embed version, commit, and build date, use:
// go build -ldflags "-X main.version=v0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X 'main.buildDate=$(date +%Y-%m-%d)'" -o docker-pid1 ./cmd/docker-pid1
var version = "dev"
var commit = ""
var buildDate = ""

func init() {
	roles.Register()
}

func main() {
	if reexec.Init() {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			// terminated on request, not a failure
			return
		}
		logrus.WithError(err).Error("docker-pid1 failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	run := newRunCommand()
	root := &cobra.Command{
		Use:           "docker-pid1",
		Short:         "Show what happens to orphans and zombies when nothing reaps them",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}
	root.Long = `docker-pid1 starts a child that starts a grandchild and exits, then
prints the process tree at each step: all running, grandchild orphaned,
grandchild dead or zombie. Run it as PID 1 in a container with and
without --init to see the difference.`
	root.Flags().AddFlagSet(run.Flags())
	root.AddCommand(run, newWatchCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docker-pid1 %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
