package storage

import (
	"time"

	"github.com/rsms/go-log"
)

// CompactionFilter reaps stale DataRecords: for every record in a non-string engine, drop
// it unless its embedded user_key still has a live MetaRecord at the same version. This
// runs independently of any user-facing command, making stale-space reclamation
// proportional to background compaction work rather than to reads/writes.
type CompactionFilter struct {
	engine *Engine
	logger *log.Logger
}

func NewCompactionFilter(e *Engine, logger *log.Logger) *CompactionFilter {
	return &CompactionFilter{engine: e, logger: logger}
}

// Keep is the per-record decision function.
func (f *CompactionFilter) Keep(recordKey []byte) bool {
	userKey, version, ok := ExtractUserKeyAndVersion(recordKey)
	if !ok {
		return false
	}
	metaData, err := f.engine.stringDB.Get(MetaKey(userKey))
	if err != nil {
		// absent (or unreadable): drop
		return false
	}
	metaVersion, err := PeekMetaVersion(metaData)
	if err != nil {
		return false
	}
	return metaVersion == version
}

// RunOnce sweeps all four non-string engines once.
func (f *CompactionFilter) RunOnce() {
	dbs := []struct {
		name string
		db   interface {
			RunCompaction(fn func([]byte) bool) error
		}
	}{
		{"hash", f.engine.hashDB},
		{"list", f.engine.listDB},
		{"set", f.engine.setDB},
		{"zset", f.engine.zsetDB},
	}
	for _, d := range dbs {
		if err := d.db.RunCompaction(f.Keep); err != nil && f.logger != nil {
			f.logger.Warn("compaction pass failed for %s db: %v", d.name, err)
		}
	}
}

// Loop runs RunOnce on a fixed interval until stop is closed.
func (f *CompactionFilter) Loop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.RunOnce()
		}
	}
}
