package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	scriptdeck "github.com/scriptdeck/scriptdeck"
	"github.com/scriptdeck/scriptdeck/internal/presentation/console"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/state"
)

// RunOptions configures the run command.
type RunOptions struct {
	CatalogPath string
	HistoryPath string
	StatePath   string
	RedisURL    string
	Developer   bool
	Debug       bool
	NoColor     bool
	Quiet       bool
}

// buildApp assembles the application core from CLI options.
func buildApp(opts RunOptions) (*scriptdeck.App, error) {
	logger := createLogger(opts.Debug)

	store, err := BuildHistoryStore(opts.RedisURL, opts.HistoryPath)
	if err != nil {
		return nil, err
	}

	appOpts := []scriptdeck.Option{
		scriptdeck.WithLogger(logger),
		scriptdeck.WithCatalogPath(opts.CatalogPath),
		scriptdeck.WithHistoryStore(store),
	}
	if opts.StatePath != "" {
		appOpts = append(appOpts, scriptdeck.WithStatePath(opts.StatePath))
	}
	return scriptdeck.New(appOpts...)
}

// RunScript executes one catalog entry to completion, relaunching through
// pause-for-review points after user confirmation. The returned error is nil
// for success and user stop.
func RunScript(opts RunOptions, scriptName string) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if !opts.Quiet {
		console.PrintBanner(scriptdeck.Version)
	}

	out := console.New(os.Stdout)
	if opts.NoColor || !console.IsTerminal(os.Stdout) {
		out = console.NewPlain(os.Stdout)
	}
	app.SetOutputCallback(func(message string, level domain.Level) {
		out.PrintLine(message, level)
	})
	if opts.Developer {
		app.SetState(state.KeyDeveloperMode, true)
	}

	terminal := make(chan domain.Event, 1)
	paused := make(chan domain.Event, 1)
	for _, name := range []string{
		domain.EventScriptCompleted,
		domain.EventScriptStopped,
		domain.EventScriptError,
	} {
		app.Bus().Subscribe(name, func(e domain.Event) {
			terminal <- e
		})
	}
	app.Bus().Subscribe(domain.EventScriptPaused, func(e domain.Event) {
		paused <- e
	})

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if err := app.RunScript(sigCtx, scriptName); err != nil {
		return err
	}

	for {
		select {
		case <-sigCtx.Done():
			app.StopScript()
			if !opts.Quiet {
				fmt.Println()
				printSystemMessage("Interrupted, run stopped.")
			}
			return nil

		case <-paused:
			if !opts.Quiet {
				printSystemMessage("Script paused for review. Press Enter to continue, Ctrl+C to stop.")
			}
			if !awaitEnter(sigCtx) {
				app.StopScript()
				return nil
			}
			if err := app.ContinueScript(sigCtx); err != nil {
				return err
			}

		case e := <-terminal:
			return reportOutcome(e, opts.Quiet)
		}
	}
}

// awaitEnter blocks until the user presses Enter. Returns false when the
// context is cancelled first.
func awaitEnter(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		reader := bufio.NewReader(os.Stdin)
		_, _ = reader.ReadString('\n')
		close(done)
	}()
	select {
	case <-ctx.Done():
		return false
	case <-done:
		return true
	}
}

func reportOutcome(e domain.Event, quiet bool) error {
	switch ev := e.(type) {
	case domain.ScriptCompleted:
		if !quiet {
			printSystemMessage("Script '%s' completed successfully.", ev.ScriptName)
		}
		return nil
	case domain.ScriptStopped:
		if !quiet {
			printSystemMessage("Script '%s' stopped by user.", ev.ScriptName)
		}
		return nil
	case domain.ScriptError:
		return fmt.Errorf("script %q failed: %s", ev.ScriptName, ev.Message)
	}
	return nil
}
