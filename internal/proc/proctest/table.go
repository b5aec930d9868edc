// Package proctest provides an in-memory process table for tests.
package proctest

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/pkg/model"
)

// Table is a mutable fake process table implementing proc.Inspector.
// Vanish lets a test remove a PID between two lookups.
type Table struct {
	mu    sync.Mutex
	procs map[model.PID]model.ProcessSummary
	// CmdlineErr makes Cmdline fail for the given PIDs
	CmdlineErr map[model.PID]error
	// StatErr makes Parent and Status fail for the given PIDs
	StatErr map[model.PID]error
	// PidsErr makes Pids fail
	PidsErr error
	// OnLookup runs before every per-PID lookup, without the lock held
	OnLookup func(pid model.PID)
}

func NewTable(procs ...model.ProcessSummary) *Table {
	t := &Table{
		procs:      make(map[model.PID]model.ProcessSummary),
		CmdlineErr: make(map[model.PID]error),
		StatErr:    make(map[model.PID]error),
	}
	for _, p := range procs {
		t.Put(p)
	}
	return t
}

// Proc is a shorthand for a running process summary
func Proc(pid, ppid model.PID, args ...string) model.ProcessSummary {
	return model.ProcessSummary{PID: pid, PPID: ppid, Status: model.StatusRunning, Cmdline: args}
}

func (t *Table) Put(p model.ProcessSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[p.PID] = p
}

func (t *Table) Vanish(pid model.PID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, pid)
}

// Zombify marks pid as a zombie with an empty command line, like the kernel does
func (t *Table) Zombify(pid model.PID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.procs[pid]; ok {
		p.Status = model.StatusZombie
		p.Cmdline = nil
		t.procs[pid] = p
	}
}

// Reparent moves pid under ppid
func (t *Table) Reparent(pid, ppid model.PID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.procs[pid]; ok {
		p.PPID = ppid
		t.procs[pid] = p
	}
}

func (t *Table) Pids(ctx context.Context) ([]model.PID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.PidsErr != nil {
		return nil, t.PidsErr
	}
	pids := make([]model.PID, 0, len(t.procs))
	for pid := range t.procs {
		pids = append(pids, pid)
	}
	// map order must not leak into the tests
	sort.Slice(pids, func(i, j int) bool { return pids[i] > pids[j] })
	return pids, nil
}

func (t *Table) Parent(ctx context.Context, pid model.PID) (model.PID, error) {
	p, err := t.statLookup(pid)
	return p.PPID, err
}

func (t *Table) Status(ctx context.Context, pid model.PID) (model.ProcessStatus, error) {
	p, err := t.statLookup(pid)
	return p.Status, err
}

func (t *Table) Cmdline(ctx context.Context, pid model.PID) ([]string, error) {
	p, err := t.lookup(pid)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	cerr := t.CmdlineErr[pid]
	t.mu.Unlock()
	if cerr != nil {
		return nil, cerr
	}
	return append([]string(nil), p.Cmdline...), nil
}

func (t *Table) statLookup(pid model.PID) (model.ProcessSummary, error) {
	p, err := t.lookup(pid)
	if err != nil {
		return p, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if serr := t.StatErr[pid]; serr != nil {
		return model.ProcessSummary{}, serr
	}
	return p, nil
}

func (t *Table) lookup(pid model.PID) (model.ProcessSummary, error) {
	if t.OnLookup != nil {
		t.OnLookup(pid)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	if !ok {
		return model.ProcessSummary{}, errors.Wrapf(proc.ErrNotFound, "pid %d", pid)
	}
	return p, nil
}

var _ proc.Inspector = (*Table)(nil)
