package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/etiktin/docker-pid1/internal/output"
	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/internal/process"
	"github.com/etiktin/docker-pid1/pkg/model"
)

type State int

const (
	StateLaunch State = iota
	StateAwaitFullTree
	StateReportAllRunning
	StateAwaitFirstChildExit
	StateReportOrphaned
	StateAwaitDeepestDeadish
	StateReportFinal
	StateIdle
	StateDone
)

var stateNames = [...]string{
	StateLaunch:              "launch",
	StateAwaitFullTree:       "await-full-tree",
	StateReportAllRunning:    "report-all-running",
	StateAwaitFirstChildExit: "await-first-child-exit",
	StateReportOrphaned:      "report-orphaned",
	StateAwaitDeepestDeadish: "await-deepest-deadish",
	StateReportFinal:         "report-final",
	StateIdle:                "idle",
	StateDone:                "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

const (
	TitleAllRunning = "Status - all processes are running (notice the parent PIDs):"
	TitleOrphaned   = "Status - the child is dead, so the grandchild was orphaned (notice its PPID changed):"
	TitleFinal      = "Status - the grandchild is either dead or a zombie (run docker with --init to fix it):"
)

// Orchestrator launches the child, then reports the tree at every
// lifecycle transition until it holds idle.
type Orchestrator struct {
	Inspector proc.Inspector
	Launcher  Launcher
	Reporter  output.Reporter
	Matcher   process.Matcher

	// Self is the PID the roster is built from, usually os.Getpid()
	Self model.PID
	// Deepest is the role whose appearance means the whole tree started
	Deepest model.Role
	// Interval between two polls
	Interval time.Duration
	// Hold is how long to idle once everything was reported
	Hold time.Duration

	// OnState, when set, is called every time a state is entered
	OnState func(State)

	handle Handle
	roster model.Roster
}

// Run walks the states in order. A termination request while idle ends
// the run without error; before that it returns the context's error.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.Deepest == "" {
		o.Deepest = model.RoleGrandchild
	}
	state := StateLaunch
	for state != StateDone {
		logrus.WithField("state", state).Debug("entering state")
		if o.OnState != nil {
			o.OnState(state)
		}
		next, err := o.step(ctx, state)
		if err != nil {
			return errors.Wrapf(err, "%s", state)
		}
		state = next
	}
	return nil
}

// Roster returns a copy of the roster recorded once the tree started
func (o *Orchestrator) Roster() model.Roster {
	return o.roster.Clone()
}

func (o *Orchestrator) step(ctx context.Context, state State) (State, error) {
	switch state {
	case StateLaunch:
		return StateAwaitFullTree, o.launch(ctx)
	case StateAwaitFullTree:
		return StateReportAllRunning, Poll(ctx, o.Interval, o.fullTree)
	case StateReportAllRunning:
		return StateAwaitFirstChildExit, o.report(ctx, TitleAllRunning)
	case StateAwaitFirstChildExit:
		return StateReportOrphaned, o.waitFirstChild(ctx)
	case StateReportOrphaned:
		return StateAwaitDeepestDeadish, o.report(ctx, TitleOrphaned)
	case StateAwaitDeepestDeadish:
		return StateReportFinal, Poll(ctx, o.Interval, o.deepestDeadish)
	case StateReportFinal:
		return StateIdle, o.report(ctx, TitleFinal)
	case StateIdle:
		return StateDone, o.idle(ctx)
	}
	return StateDone, errors.Errorf("unknown state %d", int(state))
}

func (o *Orchestrator) launch(ctx context.Context) error {
	if err := o.Reporter.Message(fmt.Sprintf("pid %d started", o.Self)); err != nil {
		return err
	}
	h, err := o.Launcher.Start(ctx)
	if err != nil {
		return err
	}
	o.handle = h
	logrus.WithField("pid", h.Pid()).Info("child launched")
	return o.Reporter.Message(fmt.Sprintf("pid %d executing the child (pid %d)", o.Self, h.Pid()))
}

func (o *Orchestrator) fullTree(ctx context.Context) (bool, error) {
	roster, err := process.BuildRoster(ctx, o.Inspector, o.Self, o.Matcher)
	if err != nil {
		return false, err
	}
	if !roster.Has(o.Deepest) {
		logrus.WithField("roles", roster.Roles()).Debug("tree not complete yet")
		return false, nil
	}
	o.roster = roster
	return true, nil
}

func (o *Orchestrator) report(ctx context.Context, title string) error {
	snap := process.TakeSnapshot(ctx, o.Inspector, o.roster, model.DisplayOrder)
	snap.Title = title
	return o.Reporter.Snapshot(snap)
}

// waitFirstChild blocks on the launched child itself, it does not poll
func (o *Orchestrator) waitFirstChild(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- o.handle.Wait()
	}()

	select {
	case err := <-done:
		log := logrus.WithField("pid", o.handle.Pid())
		if err != nil {
			log.WithError(err).Warn("child exited with an error")
		} else {
			log.Info("child exited")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) deepestDeadish(ctx context.Context) (bool, error) {
	return process.IsDeadish(ctx, o.Inspector, o.roster[o.Deepest]), nil
}

func (o *Orchestrator) idle(ctx context.Context) error {
	msg := fmt.Sprintf("pid %d sleeping for %s (send a SIGTERM to stop me - if it doesn't, run docker with --init and it will)", o.Self, o.Hold)
	if err := o.Reporter.Message(msg); err != nil {
		return err
	}

	timer := time.NewTimer(o.Hold)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		logrus.Info("termination requested")
	}
	return o.Reporter.Message(fmt.Sprintf("pid %d exiting", o.Self))
}
