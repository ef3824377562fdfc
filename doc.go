/*
Package scriptdeck is the coordination core of a script-runner application:
a catalog of predefined automation scripts that a non-technical user can run,
watch, pause at manual-review points, resume, and audit afterwards.

The design separates the concurrent machinery from the UI surface. A
background worker supervises the child process (or an in-process simulation)
and streams leveled output into a thread-safe queue; everything else runs on
a single foreground loop that drains the queue, polls for completion, mutates
the reactive key/value state store, and publishes typed lifecycle events on
an in-process bus. Side services (history, metrics, sound, notifications) are
bus subscribers, not wired into the control flow.

# Usage

	app, err := scriptdeck.New(
		scriptdeck.WithCatalogPath("scripts.yaml"),
		scriptdeck.WithHistoryPath(".scriptdeck/history.json"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	app.SetOutputCallback(func(message string, level domain.Level) {
		fmt.Println(level, message)
	})

	if err := app.RunScript(context.Background(), "install"); err != nil {
		log.Fatal(err)
	}

All interaction with the state store and the controller happens on the app's
internal loop; the exported methods marshal calls onto it, so they are safe
from any goroutine.
*/
package scriptdeck
