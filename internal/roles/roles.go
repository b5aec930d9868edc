// Package roles holds the child and grandchild programs of the demo.
// They run as re-executions of the main binary, see Register.
package roles

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/moby/sys/reexec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/etiktin/docker-pid1/internal/logging"
	"github.com/etiktin/docker-pid1/internal/orchestrator"
)

const (
	ChildCommand      = "docker-pid1-child"
	GrandchildCommand = "docker-pid1-grandchild"
)

// the child forwards these to the grandchild it starts
const (
	envGrandchildMarker   = "DOCKER_PID1_GRANDCHILD_MARKER"
	envGrandchildLifetime = "DOCKER_PID1_GRANDCHILD_LIFETIME"
)

var registerOnce sync.Once

// Register makes the role programs reachable through reexec.Init.
// It must run before reexec.Init in main (or TestMain).
func Register() {
	registerOnce.Do(func() {
		reexec.Register(ChildCommand, func() { os.Exit(runMain(runChild)) })
		reexec.Register(GrandchildCommand, func() { os.Exit(runMain(runGrandchild)) })
	})
}

// Launcher starts the built-in child by re-executing the current binary
type Launcher struct {
	ChildMarker        string
	ChildLifetime      time.Duration
	GrandchildMarker   string
	GrandchildLifetime time.Duration
	Stdout             io.Writer
	Stderr             io.Writer
}

func (l Launcher) Start(ctx context.Context) (orchestrator.Handle, error) {
	cmd, err := command(ChildCommand, l.ChildMarker, l.ChildLifetime)
	if err != nil {
		return nil, err
	}
	cmd.Env = append(os.Environ(),
		envGrandchildMarker+"="+l.GrandchildMarker,
		envGrandchildLifetime+"="+l.GrandchildLifetime.String(),
	)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return orchestrator.StartCmd(cmd)
}

// command builds a re-execution of the binary as name. The marker is
// passed as a standalone token so the roster can match it exactly.
func command(name, marker string, lifetime time.Duration) (*exec.Cmd, error) {
	cmd := reexec.Command(name, "--marker", marker, "--lifetime", lifetime.String())
	if cmd == nil {
		return nil, errors.Errorf("cannot re-execute %s on this platform", name)
	}
	// reexec sets a parent death signal, an orphan must outlive its parent
	cmd.SysProcAttr = nil
	return cmd, nil
}

func runMain(run func(args []string) error) int {
	if err := logging.Setup(os.Stderr, "info"); err != nil {
		return 2
	}
	if err := run(os.Args[1:]); err != nil {
		logrus.WithError(err).Errorf("%s failed", os.Args[0])
		return 1
	}
	return 0
}

type roleFlags struct {
	marker   string
	lifetime time.Duration
}

func parseFlags(name string, args []string) (roleFlags, error) {
	var f roleFlags
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&f.marker, "marker", name, "token identifying this role")
	fs.DurationVar(&f.lifetime, "lifetime", 0, "how long to live")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

// runChild starts the grandchild, never waits for it, and exits after its lifetime
func runChild(args []string) error {
	flags, err := parseFlags(ChildCommand, args)
	if err != nil {
		return err
	}

	marker := os.Getenv(envGrandchildMarker)
	if marker == "" {
		marker = GrandchildCommand
	}
	lifetime, err := time.ParseDuration(os.Getenv(envGrandchildLifetime))
	if err != nil {
		return errors.Wrapf(err, "invalid %s", envGrandchildLifetime)
	}

	cmd, err := command(GrandchildCommand, marker, lifetime)
	if err != nil {
		return err
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start grandchild")
	}
	logrus.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "lifetime": lifetime}).Info("grandchild started")

	time.Sleep(flags.lifetime)
	logrus.WithField("pid", os.Getpid()).Info("child exiting, leaving the grandchild behind")
	return nil
}

func runGrandchild(args []string) error {
	flags, err := parseFlags(GrandchildCommand, args)
	if err != nil {
		return err
	}
	time.Sleep(flags.lifetime)
	logrus.WithField("pid", os.Getpid()).Info("grandchild exiting")
	return nil
}
