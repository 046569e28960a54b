package docsync

import (
	"github.com/specbridge/specbridge-backend/internal/platform/logger"
)

// Engine is the document synchronization and reference-allocation core. It
// performs no internal threading: concurrency comes entirely from external
// callers, and every mutating operation runs inside the store's transactional
// write path.
type Engine struct {
	store Store
	log   *logger.Logger
}

func NewEngine(store Store, baseLog *logger.Logger) *Engine {
	return &Engine{
		store: store,
		log:   baseLog.With("component", "DocSyncEngine"),
	}
}
