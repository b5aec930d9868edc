package process

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/pkg/model"
)

// Classify reports the liveness of pid. A process whose status cannot
// be read for any reason other than being gone is considered running.
func Classify(ctx context.Context, ins proc.Inspector, pid model.PID) model.LivenessState {
	status, err := ins.Status(ctx, pid)
	if err != nil {
		if proc.IsNotFound(err) {
			return model.StateAbsent
		}
		logrus.WithError(err).WithField("pid", pid).Debug("cannot read process status")
		return model.StateRunning
	}
	if status == model.StatusZombie {
		return model.StateZombie
	}
	return model.StateRunning
}

// IsDeadish is true once pid stopped doing work: it is either a zombie
// or gone from the process table. The two cases are not told apart.
func IsDeadish(ctx context.Context, ins proc.Inspector, pid model.PID) bool {
	return Classify(ctx, ins, pid) != model.StateRunning
}
