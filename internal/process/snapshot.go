package process

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/pkg/model"
)

// TakeSnapshot describes every role of roster, in order. Roles missing
// from the roster get no row. PIDs are the roster's, never re-resolved.
func TakeSnapshot(ctx context.Context, ins proc.Inspector, roster model.Roster, order []model.Role) model.Snapshot {
	snap := model.Snapshot{Taken: time.Now()}
	for _, role := range order {
		pid, ok := roster[role]
		if !ok {
			continue
		}
		snap.Rows = append(snap.Rows, resolveRow(ctx, ins, role, pid))
	}
	return snap
}

// resolveRow reads pid once. Only a not-found error makes the row
// unresolved; any other error leaves that one field unknown and the
// process is shown as running, as Classify would see it.
func resolveRow(ctx context.Context, ins proc.Inspector, role model.Role, pid model.PID) model.SnapshotRow {
	unresolved := model.SnapshotRow{Role: role, PID: pid, State: model.StateAbsent}
	row := model.SnapshotRow{Role: role, PID: pid, State: model.StateRunning, Resolved: true}
	log := logrus.WithFields(logrus.Fields{"role": role, "pid": pid})

	ppid, err := ins.Parent(ctx, pid)
	switch {
	case err == nil:
		row.PPID = &ppid
	case proc.IsNotFound(err):
		return unresolved
	default:
		log.WithError(err).Warn("cannot read parent pid")
	}

	status, err := ins.Status(ctx, pid)
	switch {
	case err == nil:
		if status == model.StatusZombie {
			row.State = model.StateZombie
		}
	case proc.IsNotFound(err):
		return unresolved
	default:
		log.WithError(err).Warn("cannot read process status")
	}

	args, err := ins.Cmdline(ctx, pid)
	switch {
	case err == nil:
		row.Cmdline = args
	case proc.IsNotFound(err):
		return unresolved
	default:
		log.WithError(err).Debug("cannot read command line")
	}
	return row
}
