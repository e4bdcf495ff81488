package registry

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"chbridge/internal/config"
)

// DataSource is the narrow lifecycle contract the registry needs; the full
// generic contract (getColumns, executeQuery, ...) lives on
// the concrete type in package datasource, which also satisfies this
// interface.
type DataSource interface {
	ID() string
	Close() error
}

// Constructor builds a DataSource from a datasource config entry, resolving
// any "{{...}}" placeholders in its connection string via resolver first.
type Constructor func(resolver *Resolver, cfg config.DataSourceConfig) (DataSource, error)

// entry is one registry slot: the live DataSource, the digest it was built
// from, and a reference count guarding its close: a DataSource removed or
// replaced may still be in use by in-flight requests, so its close is
// deferred until the last reference is dropped.
type entry struct {
	ds     DataSource
	digest string
	cfg    config.DataSourceConfig

	mu       sync.Mutex
	refs     int  // 1 for the registry's own slot, +1 per outstanding Handle
	closed   bool
	pendingClose bool
}

// newEntry returns an entry with no references yet; the caller must acquire
// at least one (the registry's own slot reference for a stored entry, or the
// requesting caller's reference for an adhoc one).
func newEntry(ds DataSource, digest string, cfg config.DataSourceConfig) *entry {
	return &entry{ds: ds, digest: digest, cfg: cfg}
}

// acquire increments the reference count; it must not be called on an entry
// already fully closed.
func (e *entry) acquire() {
	e.mu.Lock()
	e.refs++
	e.mu.Unlock()
}

// release decrements the reference count, closing the underlying DataSource
// exactly once when it reaches zero and a close has been requested (either
// via markRemoved or, for an adhoc entry, at construction).
func (e *entry) release() error {
	e.mu.Lock()
	e.refs--
	shouldClose := e.refs <= 0 && e.pendingClose && !e.closed
	if shouldClose {
		e.closed = true
	}
	e.mu.Unlock()

	if shouldClose {
		return e.ds.Close()
	}
	return nil
}

// markRemoved drops the registry's own reference and requests close once all
// outstanding handles are released. Idempotent.
func (e *entry) markRemoved() error {
	e.mu.Lock()
	if e.pendingClose {
		e.mu.Unlock()
		return nil
	}
	e.pendingClose = true
	e.mu.Unlock()
	return e.release()
}

// Handle is a checked-out reference to a live DataSource; callers must call
// Release when done so a concurrent reload can close it.
type Handle struct {
	entry *entry
}

// DataSource returns the underlying DataSource.
func (h *Handle) DataSource() DataSource { return h.entry.ds }

// Release drops this handle's reference.
func (h *Handle) Release() error { return h.entry.release() }

// DataSourceRegistry implements C6: pluggable source types, named instances,
// and a copy-on-write snapshot so readers never observe a torn map while a
// reload is in progress.
type DataSourceRegistry struct {
	resolver *Resolver

	typesMu sync.RWMutex
	types   map[string]Constructor

	snapshot atomic.Pointer[map[string]*entry]

	writeMu sync.Mutex // serializes reload calls (single-writer discipline)
}

// NewDataSourceRegistry returns an empty registry backed by resolver.
func NewDataSourceRegistry(resolver *Resolver) *DataSourceRegistry {
	r := &DataSourceRegistry{
		resolver: resolver,
		types:    map[string]Constructor{},
	}
	empty := map[string]*entry{}
	r.snapshot.Store(&empty)
	return r
}

// RegisterType adds a pluggable source type.
func (r *DataSourceRegistry) RegisterType(name string, ctor Constructor) {
	r.typesMu.Lock()
	defer r.typesMu.Unlock()
	r.types[name] = ctor
}

func (r *DataSourceRegistry) constructorFor(typeName string) (Constructor, bool) {
	r.typesMu.RLock()
	defer r.typesMu.RUnlock()
	c, ok := r.types[typeName]
	return c, ok
}

// Reload applies a full rebuilt config map: new/digest-changed entries are
// constructed and swapped in (closing the old entry once drained); entries
// missing from newConfig are removed and closed the same way. Reload
// happens-before subsequent Get calls on the same registry.
func (r *DataSourceRegistry) Reload(newConfig map[string]config.DataSourceConfig) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := *r.snapshot.Load()
	next := make(map[string]*entry, len(newConfig))

	var firstErr error
	for id, cfg := range newConfig {
		digest, err := config.Digest(cfg)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("registry: digest for %q: %w", id, err)
			}
			continue
		}

		if prev, ok := old[id]; ok && prev.digest == digest {
			next[id] = prev
			continue
		}

		ctor, ok := r.constructorFor(cfg.Type)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("registry: unknown datasource type %q for %q", cfg.Type, id)
			}
			continue
		}

		ds, err := ctor(r.resolver, cfg)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("registry: constructing %q: %w", id, err)
			}
			continue
		}
		e := newEntry(ds, digest, cfg)
		e.acquire() // the registry's own slot reference
		next[id] = e
	}

	r.snapshot.Store(&next)

	// Close anything present in the old snapshot but not carried into next.
	for id, prev := range old {
		if next[id] != prev {
			if err := prev.markRemoved(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("registry: closing %q: %w", id, err)
			}
		}
	}

	return firstErr
}

// splitURI peels off a "?params" suffix and an optional "type:" prefix.
func splitURI(uri string) (typeName, id, rawQuery string) {
	base := uri
	if i := strings.IndexByte(base, '?'); i >= 0 {
		rawQuery = base[i+1:]
		base = base[:i]
	}

	if i := strings.IndexByte(base, ':'); i >= 0 {
		candidate := base[:i]
		if isBareTypePrefix(candidate) {
			typeName = candidate
			base = base[i+1:]
			base = strings.TrimPrefix(base, "//")
		}
	}

	if u, err := url.Parse("//" + base); err == nil && u.Host != "" {
		id = u.Hostname()
	} else {
		id = base
	}
	return typeName, id, rawQuery
}

// isBareTypePrefix accepts a non-empty token of ASCII letters and digits as
// a type prefix (e.g. "jdbc://host" is type jdbc with URI remainder
// "//host") and rejects anything else; token length is not limited.
func isBareTypePrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Get resolves uri to a checked-out DataSource handle. On a registry miss,
// if autoCreate is true and the peeled type is known, an adhoc source is
// constructed from uri as its own connection string.
func (r *DataSourceRegistry) Get(uri string, autoCreate bool) (*Handle, error) {
	typeName, id, rawQuery := splitURI(uri)

	snap := *r.snapshot.Load()
	if e, ok := snap[id]; ok {
		e.acquire()
		return &Handle{entry: e}, nil
	}

	if !autoCreate || typeName == "" {
		return nil, fmt.Errorf("data source [%s] not found!", uri) //nolint:stylecheck
	}

	ctor, ok := r.constructorFor(typeName)
	if !ok {
		return nil, fmt.Errorf("data source [%s] not found!", uri) //nolint:stylecheck
	}

	connStr := uri
	if rawQuery != "" {
		connStr = strings.TrimSuffix(uri, "?"+rawQuery)
	}
	cfg := config.DefaultDataSourceConfig()
	cfg.ID = id
	cfg.Type = typeName
	cfg.ConnectionString = connStr

	ds, err := ctor(r.resolver, cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: autocreate %q: %w", uri, err)
	}
	e := newEntry(ds, "", cfg)
	// Adhoc sources aren't stored in the snapshot: each Get(autoCreate) call
	// builds and owns its own instance, closed as soon as the caller releases
	// its sole reference.
	e.pendingClose = true
	e.acquire()
	return &Handle{entry: e}, nil
}
