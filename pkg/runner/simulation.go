package runner

import (
	"context"
	"time"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// SimStep is one line of a simulated run.
type SimStep struct {
	Level   domain.Level
	Message string
	// Delay scales the configured simulation pacing for this step.
	// Zero means one unit.
	Delay int
}

// defaultSimScript mirrors the shape of a typical install run so the UI can
// be exercised without any script on disk.
var defaultSimScript = []SimStep{
	{Level: domain.LevelInfo, Message: "Starting script in simulation mode..."},
	{Level: domain.LevelDebug, Message: "No script path configured, generating demo output"},
	{Level: domain.LevelInfo, Message: "Checking environment..."},
	{Level: domain.LevelSuccess, Message: "Environment OK"},
	{Level: domain.LevelInfo, Message: "Downloading packages...", Delay: 3},
	{Level: domain.LevelDebug, Message: "Fetched 42 packages from mirror"},
	{Level: domain.LevelWarning, Message: "Package cache is stale, refreshing"},
	{Level: domain.LevelInfo, Message: "Installing...", Delay: 4},
	{Level: domain.LevelSuccess, Message: "Installation complete"},
	{Level: domain.LevelInfo, Message: "Cleaning up temporary files..."},
	{Level: domain.LevelSuccess, Message: "Simulation finished"},
}

// runSimulation plays back the simulation script, honoring cancellation
// between steps. It always concludes with exit code 0 unless stopped.
func (r *Runner) runSimulation(ctx context.Context, done chan struct{}) {
	defer close(done)

	steps := r.simScript
	if steps == nil {
		steps = defaultSimScript
	}

	for _, step := range steps {
		units := step.Delay
		if units <= 0 {
			units = 1
		}
		select {
		case <-ctx.Done():
			r.emit(domain.LevelWarning, "Script execution interrupted by user.")
			r.simFinish()
			return
		case <-time.After(time.Duration(units) * r.simDelay):
		}
		r.emit(step.Level, step.Message)
	}

	r.finalize(0)
}

// simFinish clears the process bookkeeping after an interrupted simulation.
// Stop has already written the terminal flags.
func (r *Runner) simFinish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proc = nil
}
