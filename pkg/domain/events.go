package domain

// Event is a named, payload-carrying broadcast delivered synchronously to all
// current subscribers. Events are not retained: there is no log or replay.
//
// Each event name is a distinct concrete type so that subscribers can switch
// on the variant instead of probing untyped maps.
type Event interface {
	// EventName returns the stable identifier used for subscription routing.
	EventName() string
}

// Event names. Kept as constants so subscribers and tests can route without
// instantiating a variant.
const (
	EventScriptStarted   = "script.started"
	EventScriptCompleted = "script.completed"
	EventScriptStopped   = "script.stopped"
	EventScriptError     = "script.error"
	EventScriptPaused    = "script.paused"
	EventScriptResumed   = "script.resumed"
	EventStateChanged    = "state.changed"
	EventStateBatch      = "state.batch_update"
	EventStateReset      = "state.reset"
	EventStateRollback   = "state.rollback"
	EventOutputCleared   = "output.cleared"
)

// ScriptStarted fires when a run begins.
type ScriptStarted struct {
	ScriptName    string `json:"script_name"`
	ScriptPath    string `json:"script_path"`
	DeveloperMode bool   `json:"developer_mode"`
}

func (ScriptStarted) EventName() string { return EventScriptStarted }

// ScriptCompleted fires when a run reaches a terminal state other than a
// user stop or an error.
type ScriptCompleted struct {
	ScriptName string    `json:"script_name"`
	Status     RunStatus `json:"status"`
	ExitCode   int       `json:"exit_code"`
}

func (ScriptCompleted) EventName() string { return EventScriptCompleted }

// ScriptStopped fires when the user terminates a run.
type ScriptStopped struct {
	ScriptName string `json:"script_name"`
	ExitCode   int    `json:"exit_code"`
}

func (ScriptStopped) EventName() string { return EventScriptStopped }

// ScriptError fires when a run exits with a nonzero, non-sentinel code or
// fails to start.
type ScriptError struct {
	ScriptName string `json:"script_name"`
	ExitCode   int    `json:"exit_code"`
	Message    string `json:"message,omitempty"`
}

func (ScriptError) EventName() string { return EventScriptError }

// ScriptPaused fires when a run exits with the pause-for-review sentinel.
type ScriptPaused struct {
	ScriptName string `json:"script_name"`
	Reason     string `json:"reason"`
}

func (ScriptPaused) EventName() string { return EventScriptPaused }

// ScriptResumed fires when a paused run is relaunched.
type ScriptResumed struct {
	ScriptName string `json:"script_name"`
	ScriptPath string `json:"script_path"`
}

func (ScriptResumed) EventName() string { return EventScriptResumed }

// StateChanged fires on every effective single-key state mutation.
type StateChanged struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	OldValue any    `json:"old_value"`
}

func (StateChanged) EventName() string { return EventStateChanged }

// StateBatchUpdate fires once per batch update, listing only the keys whose
// values actually changed.
type StateBatchUpdate struct {
	Keys    []string       `json:"keys"`
	Updates map[string]any `json:"updates"`
}

func (StateBatchUpdate) EventName() string { return EventStateBatch }

// StateReset fires after the store is restored to defaults.
type StateReset struct {
	PreservedKeys []string `json:"preserved_keys,omitempty"`
}

func (StateReset) EventName() string { return EventStateReset }

// StateRollback fires after the store is restored from its committed snapshot.
type StateRollback struct{}

func (StateRollback) EventName() string { return EventStateRollback }

// OutputCleared fires when the console output is cleared.
type OutputCleared struct {
	Source string `json:"source,omitempty"`
}

func (OutputCleared) EventName() string { return EventOutputCleared }
