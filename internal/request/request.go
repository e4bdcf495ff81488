// Package request implements the per-request input extraction: pulling
// connection_string/schema/columns/table/query out of
// an HTTP request, and the normalizeQuery/extractTableName helpers the
// bridge uses to turn a ClickHouse-supplied query into a backend-runnable
// one.
package request

import (
	"net/http"
	"strconv"
	"strings"
)

// Fields holds the raw per-request inputs a route may need. Not every
// route populates every field.
type Fields struct {
	ConnectionString string
	Schema           string
	Columns          string
	Table            string
	Query            string
}

// StreamOptions are the response-streaming knobs parsed alongside Fields,
// namely the max response block size taken from the query parameters.
type StreamOptions struct {
	MaxBlockSize int
}

// Parse extracts Fields and StreamOptions from an *http.Request. Form values
// are read from both the query string and a POST body (r.ParseForm covers
// both); the raw body is read separately for the query field because it may
// arrive as the entire body rather than a single form value, optionally
// prefixed with a literal "query=".
func Parse(r *http.Request, rawBody string) (Fields, StreamOptions, error) {
	if r.Body == nil {
		r.Body = http.NoBody
	}
	if err := r.ParseForm(); err != nil {
		return Fields{}, StreamOptions{}, err
	}

	f := Fields{
		ConnectionString: r.Form.Get("connection_string"),
		Schema:           r.Form.Get("schema"),
		Columns:          r.Form.Get("columns"),
		Table:            r.Form.Get("table"),
		Query:            queryField(r, rawBody),
	}

	opts := StreamOptions{MaxBlockSize: defaultMaxBlockSize}
	if v := r.Form.Get("max_block_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxBlockSize = n
		}
	}

	return f, opts, nil
}

const defaultMaxBlockSize = 65536

// queryField prefers an explicit form value, falling back to the raw body
// (stripped of a leading "query=") for routes where the body IS the query.
func queryField(r *http.Request, rawBody string) string {
	if v := r.Form.Get("query"); v != "" {
		return v
	}
	return StripQueryPrefix(rawBody)
}

// StripQueryPrefix removes a leading "query=" from s, if present.
func StripQueryPrefix(s string) string {
	return strings.TrimPrefix(s, "query=")
}
