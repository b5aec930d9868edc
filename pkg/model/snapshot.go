package model

import "time"

// SnapshotRow describes one role at the time a snapshot was taken.
// When Resolved is false the process could not be found: PPID is nil,
// Cmdline is nil and State is StateAbsent. A resolved row may still
// have a nil PPID or Cmdline when that field could not be read.
type SnapshotRow struct {
	Role     Role
	PID      PID
	PPID     *PID
	State    LivenessState
	Cmdline  []string
	Resolved bool
}

type Snapshot struct {
	Title string
	Taken time.Time
	Rows  []SnapshotRow
}
