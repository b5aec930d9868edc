package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/etiktin/docker-pid1/internal/config"
	"github.com/etiktin/docker-pid1/internal/logging"
	"github.com/etiktin/docker-pid1/internal/orchestrator"
	"github.com/etiktin/docker-pid1/internal/output"
	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/internal/roles"
	"github.com/etiktin/docker-pid1/pkg/model"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Start the child and grandchild and report the tree (default)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := newOrchestrator(cfg, os.Stdout, os.Stderr)
			if err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}
	cmd.Example = `  docker run --rm docker-pid1
  docker run --rm --init docker-pid1
  docker-pid1 run --subreaper --hold 0`
	config.AddCommonFlags(cmd.Flags())
	config.AddRunFlags(cmd.Flags())
	return cmd
}

// loadConfig reads flags and environment and sets up logging
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newOrchestrator(cfg config.Config, stdout, stderr io.Writer) (*orchestrator.Orchestrator, error) {
	if cfg.Subreaper {
		if err := proc.SetChildSubreaper(); err != nil {
			return nil, errors.Wrap(err, "become child subreaper")
		}
		logrus.Debug("orphans are reparented to this process")
	}

	ins, err := proc.New(cfg.Backend)
	if err != nil {
		return nil, err
	}

	reporter, err := output.NewReporter(cfg.Output, stdout, useColor(cfg, stdout))
	if err != nil {
		return nil, err
	}

	var launcher orchestrator.Launcher = roles.Launcher{
		ChildMarker:        cfg.ChildMarker,
		ChildLifetime:      cfg.ChildLifetime,
		GrandchildMarker:   cfg.GrandchildMarker,
		GrandchildLifetime: cfg.GrandchildLifetime,
		Stdout:             stderr,
		Stderr:             stderr,
	}
	if cfg.Exec != "" {
		launcher = orchestrator.ExecLauncher{
			Path:   cfg.Exec,
			Args:   cfg.ExecArgs,
			Stdout: stderr,
			Stderr: stderr,
		}
	}

	return &orchestrator.Orchestrator{
		Inspector: ins,
		Launcher:  launcher,
		Reporter:  reporter,
		Matcher:   cfg.Matcher(),
		Self:      model.PID(os.Getpid()),
		Deepest:   model.RoleGrandchild,
		Interval:  cfg.Interval,
		Hold:      cfg.Hold,
	}, nil
}

func useColor(cfg config.Config, w io.Writer) bool {
	if cfg.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
