package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/etiktin/docker-pid1/internal/config"
	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/internal/tui"
	"github.com/etiktin/docker-pid1/pkg/model"
)

func newWatchCommand() *cobra.Command {
	var pid int32
	cmd := &cobra.Command{
		Use:           "watch",
		Short:         "Follow the tree of a running docker-pid1 interactively",
		Args:          cobra.NoArgs,
		Example:       "  docker exec -it <container> docker-pid1 watch --pid 1",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid <= 0 {
				return errors.Errorf("--pid must be positive, got %d", pid)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ins, err := proc.New(cfg.Backend)
			if err != nil {
				return err
			}
			return tui.Run(tui.Options{
				Inspector: ins,
				Matcher:   cfg.Matcher(),
				PID:       model.PID(pid),
				Interval:  cfg.Interval,
			})
		},
	}
	cmd.Flags().Int32Var(&pid, "pid", int32(model.RootPID), "PID of the docker-pid1 process to watch")
	config.AddCommonFlags(cmd.Flags())
	return cmd
}
