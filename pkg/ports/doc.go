// Package ports defines the driven-side interfaces of the scriptdeck core:
// the foreground scheduler contract and the history persistence contract.
// Adapters under pkg/adapters implement them.
package ports
