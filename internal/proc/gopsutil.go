package proc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/etiktin/docker-pid1/pkg/model"
)

// Gopsutil inspects processes through gopsutil. A new process.Process is
// built for every call so nothing read earlier is ever reused.
type Gopsutil struct{}

func NewGopsutil() *Gopsutil {
	return &Gopsutil{}
}

func (g *Gopsutil) Pids(ctx context.Context) ([]model.PID, error) {
	return process.PidsWithContext(ctx)
}

func (g *Gopsutil) Parent(ctx context.Context, pid model.PID) (model.PID, error) {
	p, err := g.open(ctx, pid)
	if err != nil {
		return 0, err
	}
	ppid, err := p.PpidWithContext(ctx)
	if err != nil {
		return 0, classify(err, pid)
	}
	return ppid, nil
}

func (g *Gopsutil) Status(ctx context.Context, pid model.PID) (model.ProcessStatus, error) {
	p, err := g.open(ctx, pid)
	if err != nil {
		return "", err
	}
	states, err := p.StatusWithContext(ctx)
	if err != nil {
		return "", classify(err, pid)
	}
	return statusFromGopsutil(states), nil
}

func statusFromGopsutil(states []string) model.ProcessStatus {
	if len(states) == 0 {
		return model.StatusOther
	}
	switch states[0] {
	case process.Running:
		return model.StatusRunning
	case process.Sleep, process.Wait, process.Lock:
		return model.StatusSleeping
	case process.Stop:
		return model.StatusStopped
	case process.Zombie:
		return model.StatusZombie
	case process.Idle:
		return model.StatusIdle
	}
	return model.StatusOther
}

func (g *Gopsutil) Cmdline(ctx context.Context, pid model.PID) ([]string, error) {
	p, err := g.open(ctx, pid)
	if err != nil {
		return nil, err
	}
	args, err := p.CmdlineSliceWithContext(ctx)
	if err != nil {
		return nil, classify(err, pid)
	}
	return args, nil
}

func (g *Gopsutil) open(ctx context.Context, pid model.PID) (*process.Process, error) {
	if pid <= 0 {
		// no process can have it, gopsutil reports it as a plain error
		return nil, notFound(errors.New("invalid pid"), pid)
	}
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, classify(err, pid)
	}
	return p, nil
}

func classify(err error, pid model.PID) error {
	if err == process.ErrorProcessNotRunning || IsNotFound(err) {
		return notFound(err, pid)
	}
	return err
}
