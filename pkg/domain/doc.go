// Package domain contains the core types shared across the scriptdeck
// engine: output levels, lifecycle events, run records, and sentinel errors.
//
// The package has no dependencies on other scriptdeck packages. Adapters and
// services communicate exclusively through these types, which keeps the
// coordination core decoupled from transports and storage backends.
package domain
