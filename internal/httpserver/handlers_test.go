package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chbridge/internal/chtype"
	"chbridge/internal/config"
	"chbridge/internal/queryparams"
	"chbridge/internal/registry"
	"chbridge/internal/schema"
)

type fakeDataSource struct {
	id      string
	typ     string
	quote   string
	columns schema.ColumnList
	custom  schema.ColumnList
	params  queryparams.Params
}

func (f *fakeDataSource) ID() string                      { return f.id }
func (f *fakeDataSource) Type() string                    { return f.typ }
func (f *fakeDataSource) QuoteIdentifier() string         { return f.quote }
func (f *fakeDataSource) Timezone() string                { return "" }
func (f *fakeDataSource) Parameters() queryparams.Params  { return f.params }
func (f *fakeDataSource) CustomColumns() schema.ColumnList { return f.custom }
func (f *fakeDataSource) Digest() string                  { return "digest" }
func (f *fakeDataSource) NewQueryParameters(caller queryparams.Params) queryparams.Params {
	return f.params.MergeFrom(caller)
}
func (f *fakeDataSource) GetColumns(context.Context, string, string) (schema.ColumnList, error) {
	return f.columns, nil
}
func (f *fakeDataSource) ExecuteQuery(ctx context.Context, query string, requestColumns schema.ColumnList, params queryparams.Params, w io.Writer) error {
	_, err := w.Write([]byte(query))
	return err
}
func (f *fakeDataSource) ExecuteNamedQuery(ctx context.Context, nq registry.NamedQuery, requestColumns schema.ColumnList, params queryparams.Params, w io.Writer) error {
	_, err := w.Write([]byte(nq.Query))
	return err
}
func (f *fakeDataSource) Close() error { return nil }

func newTestServer(t *testing.T, ds *fakeDataSource, namedQueries map[string]config.NamedQueryConfig) *Server {
	t.Helper()

	resolver := registry.NewResolver()
	dsReg := registry.NewDataSourceRegistry(resolver)
	dsReg.RegisterType("fake", func(*registry.Resolver, config.DataSourceConfig) (registry.DataSource, error) {
		return ds, nil
	})
	if err := dsReg.Reload(map[string]config.DataSourceConfig{
		ds.id: {ID: ds.id, Type: "fake", ConnectionString: "fake://" + ds.id},
	}); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	nqReg := registry.NewNamedQueryRegistry()
	if err := nqReg.Reload(namedQueries); err != nil {
		t.Fatalf("Reload named queries: %v", err)
	}

	return New(dsReg, nqReg, 0, 0, "", nil)
}

func TestHandlePing(t *testing.T) {
	s := newTestServer(t, &fakeDataSource{id: "ch"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "Ok.\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandleWriteAcknowledges(t *testing.T) {
	s := newTestServer(t, &fakeDataSource{id: "ch"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/write", strings.NewReader("query=insert into t values (1)"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Body.String() != "Ok." {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandleIdentifierQuote(t *testing.T) {
	s := newTestServer(t, &fakeDataSource{id: "ch", quote: "\""}, nil)

	req := httptest.NewRequest(http.MethodPost, "/identifier_quote", strings.NewReader("connection_string=ch"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Body.String() != "\"" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

// TestColumnsInfoForNamedQuery exercises a named
// query with pinned columns, looked up by table name.
func TestColumnsInfoForNamedQuery(t *testing.T) {
	namedQueries := map[string]config.NamedQueryConfig{
		"t": {
			ID:    "t",
			Query: "select 1",
			Columns: []config.ColumnConfig{
				{Name: "a", Type: string(chtype.UInt32), Nullable: false},
			},
		},
	}
	s := newTestServer(t, &fakeDataSource{id: "ch"}, namedQueries)

	req := httptest.NewRequest(http.MethodPost, "/columns_info", strings.NewReader("connection_string=ch&table=t"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	want := "columns format version: 1\n1 columns:\n`a` UInt32\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}

// TestDebugEcho exercises the debug-mode echo response.
func TestDebugEcho(t *testing.T) {
	s := newTestServer(t, &fakeDataSource{id: "ch", typ: "mysql", params: queryparams.Defaults()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("connection_string=ch?debug=true&query=select 1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "ch") || !strings.Contains(body, "mysql") || !strings.Contains(body, "select 1") {
		t.Fatalf("debug row missing expected fields: %q", body)
	}
	if !strings.Contains(body, "fetch_size=1000") {
		t.Fatalf("debug row missing echoed params: %q", body)
	}
}

func TestHandleQueryRaw(t *testing.T) {
	s := newTestServer(t, &fakeDataSource{id: "ch", params: queryparams.Defaults()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("connection_string=ch&query=select 1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Body.String() != "select 1" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
