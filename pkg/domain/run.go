package domain

import "time"

// RunStatus is the terminal classification of one execution attempt.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
	RunStopped RunStatus = "stopped"
	RunUnknown RunStatus = "unknown"
)

// PauseExitCode is the reserved process exit code signaling "paused for user
// review". A script exiting with this code has not concluded; the runner keeps
// its invocation so the run can be relaunched with the resume flag.
const PauseExitCode = 99

// StopExitCode is the synthetic exit code recorded when the user terminates a
// run. It wins over the real exit code even if the process had already exited.
const StopExitCode = -1

// ResumeFlag is appended to a script invocation when relaunching after a
// pause-for-review.
const ResumeFlag = "--resume"

// RunRecord is one finalized execution attempt. Records are immutable once
// EndTime is set and are kept as an append-only, capped list per script.
type RunRecord struct {
	ScriptName   string    `json:"script_name"`
	ScriptPath   string    `json:"script_path"`
	Status       RunStatus `json:"status"`
	ExitCode     int       `json:"exit_code"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Duration     float64   `json:"duration"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Finalize fills the terminal fields of a record in place.
func (r *RunRecord) Finalize(status RunStatus, exitCode int, errMsg string, end time.Time) {
	r.Status = status
	r.ExitCode = exitCode
	r.ErrorMessage = errMsg
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime).Seconds()
}
