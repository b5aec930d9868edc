package process

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/pkg/model"
)

// Matcher maps an invocation marker to the role it identifies. A
// process has a role when one of its command line tokens is exactly
// a marker.
type Matcher map[string]model.Role

func (m Matcher) Match(args []string) (model.Role, bool) {
	for _, arg := range args {
		if role, ok := m[arg]; ok {
			return role, true
		}
	}
	return "", false
}

// BuildRoster maps roles to the processes observable right now from self.
// self is always present, root only when self is not the tree root.
// Descendants that vanish while being inspected are skipped.
func BuildRoster(ctx context.Context, ins proc.Inspector, self model.PID, m Matcher) (model.Roster, error) {
	roster := model.Roster{model.RoleSelf: self}
	if self != model.RootPID {
		roster[model.RoleRoot] = model.RootPID
	}

	descendants, err := Descendants(ctx, ins, self)
	if err != nil {
		return nil, err
	}

	for _, pid := range descendants {
		args, err := ins.Cmdline(ctx, pid)
		if err != nil {
			// exited or turned into a zombie since it was listed
			if !proc.IsNotFound(err) {
				logrus.WithError(err).WithField("pid", pid).Debug("skipping unreadable descendant")
			}
			continue
		}
		role, ok := m.Match(args)
		if !ok || roster.Has(role) {
			continue
		}
		roster[role] = pid
	}
	return roster, nil
}

// Descendants lists every transitive child of root in ascending PID order.
// The table is enumerated once; processes whose parent cannot be read
// are left out. It fails when the table cannot be listed or root
// itself is gone.
func Descendants(ctx context.Context, ins proc.Inspector, root model.PID) ([]model.PID, error) {
	pids, err := ins.Pids(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}
	if _, err := ins.Parent(ctx, root); err != nil {
		return nil, errors.Wrapf(err, "inspect tree root %d", root)
	}

	children := make(map[model.PID][]model.PID)
	for _, pid := range pids {
		ppid, err := ins.Parent(ctx, pid)
		if err != nil {
			continue
		}
		children[ppid] = append(children[ppid], pid)
	}

	var out []model.PID
	seen := map[model.PID]bool{root: true}
	queue := []model.PID{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if seen[child] {
				continue // loop protection
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
