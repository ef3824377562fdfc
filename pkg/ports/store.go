package ports

import (
	"context"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// HistoryStore persists execution history as an ordered list of run records
// per script name. Implementations must keep records in append order; capping
// is the history manager's responsibility.
type HistoryStore interface {
	// Load returns the full history mapping. A store with no data returns an
	// empty, non-nil map.
	Load(ctx context.Context) (map[string][]domain.RunRecord, error)

	// Save replaces the full history mapping.
	Save(ctx context.Context, history map[string][]domain.RunRecord) error
}
