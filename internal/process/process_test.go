package process

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etiktin/docker-pid1/internal/proc/proctest"
	"github.com/etiktin/docker-pid1/pkg/model"
)

const (
	selfPID       model.PID = 100
	childPID      model.PID = 101
	grandchildPID model.PID = 102
)

var testMatcher = Matcher{
	"./b.py": model.RoleChild,
	"./c.py": model.RoleGrandchild,
}

func demoTree() *proctest.Table {
	return proctest.NewTable(
		proctest.Proc(1, 0, "/sbin/init"),
		proctest.Proc(selfPID, 1, "./a.py"),
		proctest.Proc(childPID, selfPID, "python3", "./b.py"),
		proctest.Proc(grandchildPID, childPID, "python3", "./c.py"),
		proctest.Proc(200, 1, "python3", "./c.py"), // not ours
	)
}

func TestMatcher(t *testing.T) {
	role, ok := testMatcher.Match([]string{"python3", "./c.py"})
	assert.True(t, ok)
	assert.Equal(t, model.RoleGrandchild, role)

	_, ok = testMatcher.Match([]string{"python3", "./c.py.bak"})
	assert.False(t, ok, "markers must match whole tokens")

	_, ok = testMatcher.Match(nil)
	assert.False(t, ok)
}

func TestBuildRoster(t *testing.T) {
	roster, err := BuildRoster(context.Background(), demoTree(), selfPID, testMatcher)
	require.NoError(t, err)
	assert.Equal(t, model.Roster{
		model.RoleRoot:       1,
		model.RoleSelf:       selfPID,
		model.RoleChild:      childPID,
		model.RoleGrandchild: grandchildPID,
	}, roster)
}

func TestBuildRosterIsIdempotent(t *testing.T) {
	table := demoTree()
	first, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildRosterAsRoot(t *testing.T) {
	table := proctest.NewTable(
		proctest.Proc(1, 0, "./a.py"),
		proctest.Proc(7, 1, "./b.py"),
	)
	roster, err := BuildRoster(context.Background(), table, 1, testMatcher)
	require.NoError(t, err)
	assert.False(t, roster.Has(model.RoleRoot))
	assert.Equal(t, model.PID(7), roster[model.RoleChild])
}

func TestBuildRosterSkipsVanishingDescendants(t *testing.T) {
	table := demoTree()
	// the grandchild exits between enumeration and inspection
	table.OnLookup = func(pid model.PID) {
		if pid == childPID {
			table.Vanish(grandchildPID)
		}
	}
	roster, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.NoError(t, err)
	assert.False(t, roster.Has(model.RoleGrandchild))
	assert.True(t, roster.Has(model.RoleSelf))
}

func TestBuildRosterSkipsUnreadableDescendants(t *testing.T) {
	table := demoTree()
	table.CmdlineErr[grandchildPID] = errors.New("permission denied")
	roster, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.NoError(t, err)
	assert.False(t, roster.Has(model.RoleGrandchild))
	assert.Equal(t, childPID, roster[model.RoleChild])
}

func TestBuildRosterZombieDescendantIsNotMatched(t *testing.T) {
	table := demoTree()
	table.Zombify(grandchildPID)
	roster, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.NoError(t, err)
	assert.False(t, roster.Has(model.RoleGrandchild))
}

func TestBuildRosterFailsWhenSelfIsGone(t *testing.T) {
	table := demoTree()
	table.Vanish(selfPID)
	_, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.Error(t, err)
}

func TestBuildRosterFailsWhenTableIsUnreadable(t *testing.T) {
	table := demoTree()
	table.PidsErr = errors.New("no /proc")
	_, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.Error(t, err)
}

func TestDescendantsIgnoresOrphans(t *testing.T) {
	table := demoTree()
	table.Vanish(childPID)
	table.Reparent(grandchildPID, 1)
	kids, err := Descendants(context.Background(), table, selfPID)
	require.NoError(t, err)
	assert.Empty(t, kids)
}

func TestClassify(t *testing.T) {
	table := demoTree()
	ctx := context.Background()

	assert.Equal(t, model.StateRunning, Classify(ctx, table, grandchildPID))
	assert.False(t, IsDeadish(ctx, table, grandchildPID))

	table.Zombify(grandchildPID)
	assert.Equal(t, model.StateZombie, Classify(ctx, table, grandchildPID))
	assert.True(t, IsDeadish(ctx, table, grandchildPID))

	table.Vanish(grandchildPID)
	assert.Equal(t, model.StateAbsent, Classify(ctx, table, grandchildPID))
	assert.True(t, IsDeadish(ctx, table, grandchildPID))
}

func TestIsDeadishForUnknownPIDs(t *testing.T) {
	table := demoTree()
	for _, pid := range []model.PID{0, 3, 99999, -1} {
		assert.True(t, IsDeadish(context.Background(), table, pid), "pid %d", pid)
	}
}

func TestTakeSnapshotOrder(t *testing.T) {
	roster := model.Roster{}
	// insertion order is the reverse of the display order
	roster[model.RoleGrandchild] = grandchildPID
	roster[model.RoleChild] = childPID
	roster[model.RoleSelf] = selfPID

	snap := TakeSnapshot(context.Background(), demoTree(), roster, model.DisplayOrder)
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, model.RoleSelf, snap.Rows[0].Role)
	assert.Equal(t, model.RoleChild, snap.Rows[1].Role)
	assert.Equal(t, model.RoleGrandchild, snap.Rows[2].Role)
	assert.False(t, snap.Taken.IsZero())
}

func TestTakeSnapshotRows(t *testing.T) {
	table := demoTree()
	roster, err := BuildRoster(context.Background(), table, selfPID, testMatcher)
	require.NoError(t, err)

	snap := TakeSnapshot(context.Background(), table, roster, model.DisplayOrder)
	require.Len(t, snap.Rows, 4)
	gc := snap.Rows[3]
	assert.True(t, gc.Resolved)
	require.NotNil(t, gc.PPID)
	assert.Equal(t, childPID, *gc.PPID)
	assert.Equal(t, model.StateRunning, gc.State)
	assert.Equal(t, []string{"python3", "./c.py"}, gc.Cmdline)
}

func TestTakeSnapshotShowsReparentingAndDeath(t *testing.T) {
	table := demoTree()
	ctx := context.Background()
	roster, err := BuildRoster(ctx, table, selfPID, testMatcher)
	require.NoError(t, err)

	before := TakeSnapshot(ctx, table, roster, model.DisplayOrder)

	table.Vanish(childPID)
	table.Reparent(grandchildPID, 1)
	orphaned := TakeSnapshot(ctx, table, roster, model.DisplayOrder)

	assert.Equal(t, childPID, *before.Rows[3].PPID)
	assert.Equal(t, model.PID(1), *orphaned.Rows[3].PPID)

	child := orphaned.Rows[2]
	assert.False(t, child.Resolved)
	assert.Nil(t, child.PPID)
	assert.Nil(t, child.Cmdline)
	assert.Equal(t, model.StateAbsent, child.State)
	assert.Equal(t, childPID, child.PID, "the last known pid is kept")

	table.Zombify(grandchildPID)
	final := TakeSnapshot(ctx, table, roster, model.DisplayOrder)
	assert.Equal(t, model.StateZombie, final.Rows[3].State)
	assert.True(t, final.Rows[3].Resolved)
	assert.Empty(t, final.Rows[3].Cmdline)
}

func TestTakeSnapshotVanishingMidRow(t *testing.T) {
	table := demoTree()
	table.OnLookup = func(pid model.PID) {
		// parent is read, then the process is reaped before its cmdline is read
		if pid == grandchildPID {
			table.OnLookup = func(model.PID) { table.Vanish(grandchildPID) }
		}
	}
	roster := model.Roster{model.RoleGrandchild: grandchildPID}
	snap := TakeSnapshot(context.Background(), table, roster, model.DisplayOrder)
	require.Len(t, snap.Rows, 1)
	assert.False(t, snap.Rows[0].Resolved)
	assert.Equal(t, model.StateAbsent, snap.Rows[0].State)
}

func TestTakeSnapshotUnreadableCmdline(t *testing.T) {
	table := demoTree()
	table.CmdlineErr[childPID] = errors.New("permission denied")
	roster := model.Roster{model.RoleChild: childPID}
	snap := TakeSnapshot(context.Background(), table, roster, model.DisplayOrder)
	require.Len(t, snap.Rows, 1)
	assert.True(t, snap.Rows[0].Resolved)
	assert.Equal(t, model.StateRunning, snap.Rows[0].State)
	assert.Nil(t, snap.Rows[0].Cmdline)
}

func TestTakeSnapshotUnreadableStatKeepsProcessAlive(t *testing.T) {
	table := demoTree()
	table.StatErr[grandchildPID] = errors.New("permission denied")
	ctx := context.Background()
	roster := model.Roster{model.RoleGrandchild: grandchildPID}

	snap := TakeSnapshot(ctx, table, roster, model.DisplayOrder)
	require.Len(t, snap.Rows, 1)
	row := snap.Rows[0]
	assert.True(t, row.Resolved)
	assert.Nil(t, row.PPID)
	assert.Equal(t, model.StateRunning, row.State)
	assert.Equal(t, []string{"python3", "./c.py"}, row.Cmdline)
	assert.Equal(t, Classify(ctx, table, grandchildPID), row.State, "report and poller agree")

	table.Vanish(grandchildPID)
	snap = TakeSnapshot(ctx, table, roster, model.DisplayOrder)
	assert.False(t, snap.Rows[0].Resolved)
	assert.Equal(t, model.StateAbsent, snap.Rows[0].State)
}
