package middleware

import (
	"context"
	"regexp"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
)

type redactionMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks matches of the
// given patterns inside persisted error messages and script paths. Script
// failures often echo credentials or home directories; the in-memory
// records stay untouched.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, history map[string][]domain.RunRecord) error {
	masked := make(map[string][]domain.RunRecord, len(history))
	for name, records := range history {
		cloned := make([]domain.RunRecord, len(records))
		copy(cloned, records)
		for i := range cloned {
			cloned[i].ErrorMessage = m.mask(cloned[i].ErrorMessage)
			cloned[i].ScriptPath = m.mask(cloned[i].ScriptPath)
		}
		masked[name] = cloned
	}
	return m.next.Save(ctx, masked)
}

func (m *redactionMiddleware) Load(ctx context.Context) (map[string][]domain.RunRecord, error) {
	return m.next.Load(ctx)
}

func (m *redactionMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, "***")
	}
	return s
}
