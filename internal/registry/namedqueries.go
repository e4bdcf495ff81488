package registry

import (
	"fmt"
	"sync"

	"chbridge/internal/chtype"
	"chbridge/internal/config"
	"chbridge/internal/schema"
)

// NamedQuery is one resolved named-query entry: the SQL text plus,
// optionally, a pinned column list (when the config supplied one).
type NamedQuery struct {
	ID      string
	Query   string
	Columns schema.ColumnList
	HasCols bool
}

// NamedQueryRegistry implements C7: same shape as the datasource registry
// but with no pluggable types and no close semantics — entries are plain
// data, not live resources.
type NamedQueryRegistry struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	byID    map[string]namedQueryEntry
}

type namedQueryEntry struct {
	nq     NamedQuery
	digest string
}

// NewNamedQueryRegistry returns an empty registry.
func NewNamedQueryRegistry() *NamedQueryRegistry {
	return &NamedQueryRegistry{byID: map[string]namedQueryEntry{}}
}

// Reload replaces entries whose digest changed and drops entries missing
// from newConfig; byte-equivalent-after-canonicalization JSON is a no-op.
func (r *NamedQueryRegistry) Reload(newConfig map[string]config.NamedQueryConfig) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	old := r.byID
	r.mu.RUnlock()

	next := make(map[string]namedQueryEntry, len(newConfig))
	var firstErr error
	for id, cfg := range newConfig {
		digest, err := config.Digest(cfg)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("registry: digest for query %q: %w", id, err)
			}
			continue
		}

		if prev, ok := old[id]; ok && prev.digest == digest {
			next[id] = prev
			continue
		}

		nq := NamedQuery{ID: id, Query: cfg.Query}
		if len(cfg.Columns) > 0 {
			cols := make([]schema.ColumnInfo, 0, len(cfg.Columns))
			for _, cc := range cfg.Columns {
				col, err := schema.NewColumnWithArgs(cc.Name, chtype.DataType(cc.Type), cc.Nullable, cc.Precision, cc.Scale, cc.Timezone, cc.Precision != 0, cc.Scale != 0)
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("registry: query %q column %q: %w", id, cc.Name, err)
					}
					continue
				}
				cols = append(cols, col)
			}
			nq.Columns = schema.New(cols...)
			nq.HasCols = true
		}

		next[id] = namedQueryEntry{nq: nq, digest: digest}
	}

	r.mu.Lock()
	r.byID = next
	r.mu.Unlock()

	return firstErr
}

// Get returns the named query for id.
func (r *NamedQueryRegistry) Get(id string) (NamedQuery, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e.nq, ok
}
