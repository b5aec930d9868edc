package model

// PID is a handle into the OS process table. It may be reused by the OS
// once the process it named has been reaped.
type PID = int32

// ProcessStatus is the normalized scheduler state of a process
type ProcessStatus string

const (
	StatusRunning  ProcessStatus = "running"
	StatusSleeping ProcessStatus = "sleeping"
	StatusStopped  ProcessStatus = "stopped"
	StatusZombie   ProcessStatus = "zombie"
	StatusIdle     ProcessStatus = "idle"
	StatusOther    ProcessStatus = "other"
)

// LivenessState is what the classifier reports for a PID
type LivenessState string

const (
	StateRunning LivenessState = "running"
	StateZombie  LivenessState = "zombie"
	StateAbsent  LivenessState = "absent"
)

// DisplayState is the value printed in the STATUS column.
// An absent process is shown as "dead".
func (s LivenessState) DisplayState() string {
	if s == StateAbsent {
		return "dead"
	}
	return string(s)
}

// ProcessSummary holds basic information about a process for listing
type ProcessSummary struct {
	PID     PID
	PPID    PID
	Status  ProcessStatus
	Cmdline []string
}
