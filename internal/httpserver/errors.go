package httpserver

import (
	"fmt"
	"net/http"
)

// errUnsupportedDataSource reports a registry entry whose concrete type
// doesn't implement the full datasource.DataSource contract; this should
// never happen with types registered through cmd/bridge, but a registry is
// pluggable by construction.
func errUnsupportedDataSource(uri string) error {
	return fmt.Errorf("data source [%s] does not support query execution", uri)
}

// finishWithError writes a 500 with err's message as the body, matching the
// teacher's finishWithError (every error kind not otherwise
// classified surfaces as HTTP 500 with the message as body).
func finishWithError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(err.Error()))
}
