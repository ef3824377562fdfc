package domain

import "errors"

// ErrAlreadyRunning is returned by Start while a run is in progress.
var ErrAlreadyRunning = errors.New("script is already running")

// ErrNoScript is returned by Start when no script path is given for a
// non-simulation run.
var ErrNoScript = errors.New("no script path configured")

// ErrScriptNotFound is returned when the configured script path does not exist.
var ErrScriptNotFound = errors.New("script not found")

// ErrNotPaused is returned by Resume when no paused run is active.
var ErrNotPaused = errors.New("no script is paused")

// ErrRunNotFound is returned by history stores when a script has no records.
var ErrRunNotFound = errors.New("run not found")
