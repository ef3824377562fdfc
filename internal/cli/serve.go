package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ServeOptions configures the observation server.
type ServeOptions struct {
	RunOptions
	Addr string
}

// Serve runs the HTTP observation API until interrupted.
func Serve(opts ServeOptions) error {
	app, err := buildApp(opts.RunOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           app.HTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	if !opts.Quiet {
		printSystemMessage("Observation API listening on %s", opts.Addr)
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
