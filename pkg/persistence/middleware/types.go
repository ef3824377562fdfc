// Package middleware wraps a history store with cross-cutting persistence
// behavior such as encryption at rest and redaction of sensitive output.
package middleware

import "github.com/scriptdeck/scriptdeck/pkg/ports"

// Middleware allows wrapping a HistoryStore to add behavior.
type Middleware func(ports.HistoryStore) ports.HistoryStore

// Chain applies middlewares outermost-first: Chain(store, a, b) wraps store
// with b, then a.
func Chain(store ports.HistoryStore, middlewares ...Middleware) ports.HistoryStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
