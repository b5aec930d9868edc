package proc

import (
	"context"
	"fmt"
	"io/fs"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etiktin/docker-pid1/pkg/model"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrNotFound, true},
		{"wrapped sentinel", errors.Wrap(ErrNotFound, "pid 7"), true},
		{"missing proc dir", &fs.PathError{Op: "open", Path: "/proc/7/stat", Err: syscall.ENOENT}, true},
		{"no such process", syscall.ESRCH, true},
		{"wrapped no such process", fmt.Errorf("kill: %w", syscall.ESRCH), true},
		{"permission denied", &fs.PathError{Op: "open", Path: "/proc/7/stat", Err: syscall.EACCES}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestNew(t *testing.T) {
	ins, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &Gopsutil{}, ins)

	ins, err = New(BackendGopsutil)
	require.NoError(t, err)
	assert.IsType(t, &Gopsutil{}, ins)

	_, err = New("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bogus"`)
}

func TestGopsutilClassify(t *testing.T) {
	err := classify(process.ErrorProcessNotRunning, 42)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "pid 42")

	assert.True(t, IsNotFound(classify(syscall.ESRCH, 42)))

	other := errors.New("permission denied")
	assert.Equal(t, other, classify(other, 42))
}

func TestGopsutilStatusMapping(t *testing.T) {
	tests := []struct {
		states []string
		want   model.ProcessStatus
	}{
		{nil, model.StatusOther},
		{[]string{process.Running}, model.StatusRunning},
		{[]string{process.Sleep}, model.StatusSleeping},
		{[]string{process.Wait}, model.StatusSleeping},
		{[]string{process.Lock}, model.StatusSleeping},
		{[]string{process.Stop}, model.StatusStopped},
		{[]string{process.Zombie}, model.StatusZombie},
		{[]string{process.Idle}, model.StatusIdle},
		{[]string{"unknown"}, model.StatusOther},
		{[]string{process.Zombie, process.Running}, model.StatusZombie},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFromGopsutil(tt.states), "%v", tt.states)
	}
}

func TestGopsutilInvalidPIDsAreNotFound(t *testing.T) {
	g := NewGopsutil()
	ctx := context.Background()
	for _, pid := range []model.PID{0, -1} {
		_, err := g.Parent(ctx, pid)
		assert.True(t, IsNotFound(err), "parent of %d: %v", pid, err)
		_, err = g.Status(ctx, pid)
		assert.True(t, IsNotFound(err), "status of %d: %v", pid, err)
		_, err = g.Cmdline(ctx, pid)
		assert.True(t, IsNotFound(err), "cmdline of %d: %v", pid, err)
	}
}
