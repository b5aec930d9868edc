package orchestrator

import (
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/etiktin/docker-pid1/pkg/model"
)

// Handle is a started child process
type Handle interface {
	Pid() model.PID
	// Wait blocks until the process exits and reaps it
	Wait() error
}

// Launcher starts the first descendant of the tree
type Launcher interface {
	Start(ctx context.Context) (Handle, error)
}

type cmdHandle struct {
	cmd *exec.Cmd
}

// StartCmd starts cmd and returns a handle on it. The command is
// expected to be built without a context: cancelling the run must not
// kill the tree being observed.
func StartCmd(cmd *exec.Cmd) (Handle, error) {
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", cmd.Path)
	}
	return cmdHandle{cmd: cmd}, nil
}

func (h cmdHandle) Pid() model.PID {
	return model.PID(h.cmd.Process.Pid)
}

func (h cmdHandle) Wait() error {
	return h.cmd.Wait()
}

// ExecLauncher runs an external executable as the child
type ExecLauncher struct {
	Path   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

func (l ExecLauncher) Start(ctx context.Context) (Handle, error) {
	cmd := exec.Command(l.Path, l.Args...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return StartCmd(cmd)
}
