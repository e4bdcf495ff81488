package httpserver

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"chbridge/internal/chtype"
	"chbridge/internal/datasource"
	"chbridge/internal/queryparams"
	"chbridge/internal/request"
	"chbridge/internal/schema"
)

// handlePing answers the liveness probe: body exactly
// "Ok.\n".
func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("Ok.\n"))
}

// handleWrite acknowledges every write whose request parses with "Ok."
// verbatim (a parse failure is a 500); the endpoint is reserved and must not
// invent write semantics.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.parse(r); err != nil {
		finishWithError(w, err)
		return
	}
	_, _ = w.Write([]byte("Ok."))
}

// handleIdentifierQuote returns the backend's identifier quote character for
// (connection_string).
func (s *Server) handleIdentifierQuote(w http.ResponseWriter, r *http.Request) {
	fields, _, err := s.parse(r)
	if err != nil {
		finishWithError(w, err)
		return
	}

	handle, ds, err := s.resolveDataSource(fields.ConnectionString)
	if err != nil {
		finishWithError(w, err)
		return
	}
	defer handle.Release() //nolint:errcheck

	_, _ = w.Write([]byte(ds.QuoteIdentifier()))
}

// handleColumnsInfo returns the textual ColumnList header for
// (connection_string, schema, table) — or a registered named query's own
// column list when table names one.
func (s *Server) handleColumnsInfo(w http.ResponseWriter, r *http.Request) {
	fields, _, err := s.parse(r)
	if err != nil {
		finishWithError(w, err)
		return
	}

	caller, err := s.callerParams(r, fields)
	if err != nil {
		finishWithError(w, err)
		return
	}

	handle, ds, err := s.resolveDataSource(fields.ConnectionString)
	if err != nil {
		finishWithError(w, err)
		return
	}
	defer handle.Release() //nolint:errcheck

	params := ds.NewQueryParameters(caller)

	var columns schema.ColumnList
	if nq, ok := s.namedQueries.Get(fields.Table); ok && nq.HasCols {
		columns = nq.Columns
	} else if ok {
		columns, err = ds.GetColumns(r.Context(), fields.Schema, nq.Query)
	} else {
		columns, err = ds.GetColumns(r.Context(), fields.Schema, fields.Table)
	}
	if err != nil {
		finishWithError(w, err)
		return
	}

	columns = prependFlaggedColumns(columns, ds, params)

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, columns.String())
}

// handleQuery implements the "/" route: execute a query (raw or named) and
// stream chunked native-binary rows, or emit a single debug row when
// debug=true (see debug.go).
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	fields, _, err := s.parse(r)
	if err != nil {
		finishWithError(w, err)
		return
	}

	caller, err := s.callerParams(r, fields)
	if err != nil {
		finishWithError(w, err)
		return
	}

	handle, ds, err := s.resolveDataSource(fields.ConnectionString)
	if err != nil {
		finishWithError(w, err)
		return
	}
	defer handle.Release() //nolint:errcheck

	params := ds.NewQueryParameters(caller)

	query, err := datasource.LoadSavedQueryAsNeeded(s.readFile, s.home, fields.Query)
	if err != nil {
		finishWithError(w, err)
		return
	}

	if params.Debug {
		w.Header().Set("Content-Type", "application/octet-stream")
		if err := writeDebugRow(w, ds, query, fields.Columns, params); err != nil {
			s.log.Error("httpserver: debug row: %v", err)
		}
		return
	}

	var requestColumns schema.ColumnList
	if fields.Columns != "" {
		requestColumns, err = schema.ParseColumnList(fields.Columns)
		if err != nil {
			finishWithError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	flusher, _ := w.(http.Flusher)

	sw := &streamWriter{w: w, flusher: flusher}

	nq, named := s.namedQueries.Get(fields.Table)
	if !named {
		nq, named = s.namedQueries.Get(query)
	}
	if named {
		err = ds.ExecuteNamedQuery(r.Context(), nq, requestColumns, params, sw)
	} else {
		err = ds.ExecuteQuery(r.Context(), request.NormalizeQuery(query), requestColumns, params, sw)
	}
	if err != nil {
		s.log.Error("httpserver: query %q: %v", fields.ConnectionString, err)
		if !sw.wrote {
			finishWithError(w, err)
		}
	}
}

// parse extracts request.Fields from r. The raw body is read up front (for
// routes whose query text may arrive as the whole body) and then restored
// onto r so request.Parse's own r.ParseForm can still consume it.
func (s *Server) parse(r *http.Request) (request.Fields, request.StreamOptions, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return request.Fields{}, request.StreamOptions{}, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return request.Parse(r, string(body))
}

// callerParams builds the highest-priority Params layer from the request's
// own URI and, for connection strings carrying a "?..." suffix (e.g.
// "connection_string=ch?debug=true"), that suffix too — the caller wins
// either way over the datasource's own configured defaults. The layer holds
// only the keys the caller set (everything else stays zero), so it never
// overrides the datasource's settings with framework defaults.
func (s *Server) callerParams(r *http.Request, fields request.Fields) (queryparams.Params, error) {
	caller, err := queryparams.Params{}.MergeFromURI(r.URL.RawQuery)
	if err != nil {
		return queryparams.Params{}, err
	}
	if idx := strings.IndexByte(fields.ConnectionString, '?'); idx >= 0 {
		fromConnString, err := queryparams.Params{}.MergeFromURI(fields.ConnectionString[idx+1:])
		if err == nil {
			caller = fromConnString.MergeFrom(caller)
		}
	}
	return caller, nil
}

// prependFlaggedColumns prepends the datasource-name and custom-columns
// prefix columns when the corresponding Params flags are set.
func prependFlaggedColumns(columns schema.ColumnList, ds datasource.DataSource, params queryparams.Params) schema.ColumnList {
	var prefix []schema.ColumnInfo
	if params.ShowCustomColumns {
		cc := ds.CustomColumns()
		for i := 0; i < cc.Size(); i++ {
			col, _ := cc.Column(i)
			prefix = append(prefix, col)
		}
	}
	if params.ShowDatasourceColumn {
		dsCol, _ := schema.NewColumn("datasource", chtype.String, false)
		prefix = append([]schema.ColumnInfo{dsCol}, prefix...)
	}
	if len(prefix) == 0 {
		return columns
	}
	return columns.Prepend(prefix...)
}

// streamWriter wraps the response writer, flushing after every write so rows
// reach the client as they're produced, and records whether any bytes were
// written so a mid-stream error can still be distinguished from a request
// that never started.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	wrote   bool
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	if n > 0 {
		sw.wrote = true
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return n, err
}
