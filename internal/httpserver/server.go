// Package httpserver implements the bridge's HTTP surface: /ping,
// /columns_info, /identifier_quote, / and /write, dispatching through the
// request package into the registries and a DataSource's execute path,
// following a parse -> dispatch -> header/status -> stream body -> error
// mapping shape.
package httpserver

import (
	"context"
	"net/http"
	"os"
	"time"

	"chbridge/internal/datasource"
	"chbridge/internal/logger"
	"chbridge/internal/registry"
)

// Server wires the two registries and the per-route timeouts into a
// net/http handler.
type Server struct {
	dataSources  *registry.DataSourceRegistry
	namedQueries *registry.NamedQueryRegistry

	requestTimeout time.Duration
	queryTimeout   time.Duration

	home     string
	readFile func(string) ([]byte, error)

	log logger.Logger

	mux *http.ServeMux
}

// New builds a Server. requestTimeout/queryTimeout of zero mean no deadline,
// matching config.ServerConfig's own zero-value behavior. home is the base
// directory loadSavedQueryAsNeeded resolves relative query file names
// against.
func New(dataSources *registry.DataSourceRegistry, namedQueries *registry.NamedQueryRegistry, requestTimeout, queryTimeout time.Duration, home string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard
	}

	s := &Server{
		dataSources:    dataSources,
		namedQueries:   namedQueries,
		requestTimeout: requestTimeout,
		queryTimeout:   queryTimeout,
		home:           home,
		readFile:       os.ReadFile,
		log:            log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.withTimeout(s.requestTimeout, s.handlePing))
	mux.HandleFunc("/columns_info", s.withTimeout(s.queryTimeout, s.handleColumnsInfo))
	mux.HandleFunc("/identifier_quote", s.withTimeout(s.requestTimeout, s.handleIdentifierQuote))
	mux.HandleFunc("/write", s.withTimeout(s.queryTimeout, s.handleWrite))
	mux.HandleFunc("/", s.withTimeout(s.queryTimeout, s.handleQuery))
	s.mux = mux

	return s
}

// Handler returns the server's http.Handler, for embedding or testing.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe starts serving on addr; it blocks until the server stops or
// errors.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return httpSrv.ListenAndServe() //nolint:wrapcheck
}

// withTimeout wraps handler so its request context carries a deadline
// derived from d (each route has its own requestTimeout or queryTimeout).
// d <= 0 disables the deadline.
func (s *Server) withTimeout(d time.Duration, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d <= 0 {
			handler(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		handler(w, r.WithContext(ctx))
	}
}

// resolveDataSource looks up the handle for connectionString, auto-creating
// an adhoc source when the registry has no stored entry for it. Callers
// must Release the handle.
func (s *Server) resolveDataSource(connectionString string) (*registry.Handle, datasource.DataSource, error) {
	handle, err := s.dataSources.Get(connectionString, true)
	if err != nil {
		return nil, nil, err
	}
	ds, ok := handle.DataSource().(datasource.DataSource)
	if !ok {
		_ = handle.Release()
		return nil, nil, errUnsupportedDataSource(connectionString)
	}
	return handle, ds, nil
}
