package proc

import (
	"context"
	"io/fs"
	"syscall"

	"github.com/pkg/errors"

	"github.com/etiktin/docker-pid1/pkg/model"
)

// ErrNotFound is returned (wrapped) whenever a PID no longer names a
// process. It is an expected outcome of every lookup, not a failure.
var ErrNotFound = errors.New("process not found")

// Inspector is a read-only, uncached view of the process table.
// Every per-PID method may fail independently with an error for which
// IsNotFound is true, even right after Pids listed the PID.
type Inspector interface {
	Pids(ctx context.Context) ([]model.PID, error)
	Parent(ctx context.Context, pid model.PID) (model.PID, error)
	Status(ctx context.Context, pid model.PID) (model.ProcessStatus, error)
	Cmdline(ctx context.Context, pid model.PID) ([]string, error)
}

const (
	BackendGopsutil = "gopsutil"
	BackendProcFS   = "procfs"
)

// New returns the inspector registered under backend
func New(backend string) (Inspector, error) {
	switch backend {
	case "", BackendGopsutil:
		return NewGopsutil(), nil
	case BackendProcFS:
		ins, err := NewProcFS("")
		if err != nil {
			return nil, err
		}
		return ins, nil
	}
	return nil, errors.Errorf("unknown inspector backend %q", backend)
}

// IsNotFound reports whether err means the PID is gone
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ESRCH)
}

func notFound(err error, pid model.PID) error {
	return errors.Wrapf(ErrNotFound, "pid %d: %v", pid, err)
}
