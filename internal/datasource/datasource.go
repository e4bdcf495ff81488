// Package datasource implements the generic and SQL-backed DataSource
// contract: pooled backend connections, column
// inference with an LRU+TTL cache, and streaming query results through the
// wire encoder.
package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"chbridge/internal/queryparams"
	"chbridge/internal/registry"
	"chbridge/internal/schema"
)

// DataSource is the generic contract every pluggable source type
// implements. It satisfies registry.DataSource so it can live in the
// registry's snapshot directly.
type DataSource interface {
	ID() string
	Type() string
	QuoteIdentifier() string
	Timezone() string
	Parameters() queryparams.Params
	CustomColumns() schema.ColumnList
	Digest() string

	// GetColumns returns the ColumnList for the rows query will produce,
	// backed by a per-source bounded cache.
	GetColumns(ctx context.Context, schemaName, query string) (schema.ColumnList, error)

	// NewQueryParameters merges the source's own defaults with a caller-
	// supplied override (defaults ∘ own ∘ caller).
	NewQueryParameters(caller queryparams.Params) queryparams.Params

	// ExecuteQuery streams rows for a raw query to w.
	ExecuteQuery(ctx context.Context, query string, requestColumns schema.ColumnList, params queryparams.Params, w io.Writer) error

	// ExecuteNamedQuery remaps requestColumns against nq's own column list by
	// name before delegating to the same streaming path.
	ExecuteNamedQuery(ctx context.Context, nq registry.NamedQuery, requestColumns schema.ColumnList, params queryparams.Params, w io.Writer) error

	Close() error
}

// Compile-time assertion: every DataSource is usable directly as a
// registry.DataSource.
var _ registry.DataSource = DataSource(nil)

// savedQueryExtensions are the file suffixes LoadSavedQueryAsNeeded
// recognizes.
var savedQueryExtensions = []string{".query", ".sql"}

// LoadSavedQueryAsNeeded resolves q to a query body: if q has no newline
// and ends in one of savedQueryExtensions and names an
// existing file under home, its contents replace q.
func LoadSavedQueryAsNeeded(readFile func(name string) ([]byte, error), home, q string) (string, error) {
	if strings.ContainsAny(q, "\n") {
		return q, nil
	}

	matches := false
	for _, ext := range savedQueryExtensions {
		if strings.HasSuffix(q, ext) {
			matches = true
			break
		}
	}
	if !matches {
		return q, nil
	}

	path := q
	if home != "" && !strings.HasPrefix(q, "/") {
		path = home + "/" + q
	}

	data, err := readFile(path)
	if err != nil {
		// Not found (or unreadable): treat q as a literal query, not an error —
		// a saved query is loaded only as needed, so absence isn't exceptional.
		return q, nil //nolint:nilerr
	}
	return string(data), nil
}

// remapColumns resolves requestColumns' ColumnInfo.index against the named
// query's own column list by name: an explicit integer index is resolved
// once against the named query's column list.
func remapColumns(requestColumns schema.ColumnList, named schema.ColumnList) (schema.ColumnList, error) {
	if requestColumns.Size() == 0 {
		return named, nil
	}

	out := make([]schema.ColumnInfo, 0, requestColumns.Size())
	for i := 0; i < requestColumns.Size(); i++ {
		col, err := requestColumns.Column(i)
		if err != nil {
			return schema.ColumnList{}, err
		}
		if col.Index() != -1 {
			out = append(out, col)
			continue
		}

		idx := -1
		for j := 0; j < named.Size(); j++ {
			nc, _ := named.Column(j)
			if nc.Name == col.Name {
				idx = j
				break
			}
		}
		if idx == -1 {
			return schema.ColumnList{}, fmt.Errorf("datasource: column %q not found in named query", col.Name)
		}
		resolved, err := col.WithIndex(idx)
		if err != nil {
			return schema.ColumnList{}, err
		}
		out = append(out, resolved)
	}
	return schema.New(out...), nil
}

// timeoutContext derives a context with deadline d from parent (no deadline
// when d <= 0). The SQL implementation does not call it; its query paths use
// the request context as given.
func timeoutContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
