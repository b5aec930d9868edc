//go:build linux

package proc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"

	"github.com/etiktin/docker-pid1/pkg/model"
)

// ProcFS reads /proc directly. It is the cheaper backend inside
// containers where gopsutil's host-proc detection gets in the way.
type ProcFS struct {
	fs procfs.FS
}

// NewProcFS opens the proc filesystem mounted at mount, or the default
// mount point when mount is empty.
func NewProcFS(mount string) (*ProcFS, error) {
	if mount == "" {
		mount = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, errors.Wrapf(err, "open procfs at %s", mount)
	}
	return &ProcFS{fs: fs}, nil
}

func (p *ProcFS) Pids(ctx context.Context) ([]model.PID, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, err
	}
	pids := make([]model.PID, 0, len(procs))
	for _, pr := range procs {
		pids = append(pids, model.PID(pr.PID))
	}
	return pids, nil
}

func (p *ProcFS) Parent(ctx context.Context, pid model.PID) (model.PID, error) {
	stat, err := p.stat(pid)
	if err != nil {
		return 0, err
	}
	return model.PID(stat.PPID), nil
}

func (p *ProcFS) Status(ctx context.Context, pid model.PID) (model.ProcessStatus, error) {
	stat, err := p.stat(pid)
	if err != nil {
		return "", err
	}
	return statusFromState(stat.State), nil
}

func (p *ProcFS) Cmdline(ctx context.Context, pid model.PID) ([]string, error) {
	pr, err := p.fs.Proc(int(pid))
	if err != nil {
		return nil, classify(err, pid)
	}
	args, err := pr.CmdLine()
	if err != nil {
		return nil, classify(err, pid)
	}
	return args, nil
}

func (p *ProcFS) stat(pid model.PID) (procfs.ProcStat, error) {
	pr, err := p.fs.Proc(int(pid))
	if err != nil {
		return procfs.ProcStat{}, classify(err, pid)
	}
	stat, err := pr.Stat()
	if err != nil {
		return procfs.ProcStat{}, classify(err, pid)
	}
	return stat, nil
}

// statusFromState maps the single letter state of /proc/<pid>/stat
func statusFromState(state string) model.ProcessStatus {
	switch state {
	case "R":
		return model.StatusRunning
	case "S", "D", "W":
		return model.StatusSleeping
	case "T", "t":
		return model.StatusStopped
	case "Z":
		return model.StatusZombie
	case "I":
		return model.StatusIdle
	}
	return model.StatusOther
}
