package httpserver

import (
	"io"

	"chbridge/internal/datasource"
	"chbridge/internal/queryparams"
	"chbridge/internal/wire"
)

// writeDebugRow implements debug mode: a
// single synthetic row describing the datasource and the request that would
// otherwise have run. Columns are (datasource, type, [columns-as-json,]
// query, parameters-as-query-string) — the columns field is only emitted
// when the caller supplied an explicit request column header, matching the
// plain four-string echo of the no-columns case.
func writeDebugRow(w io.Writer, ds datasource.DataSource, query, requestColumnsHeader string, params queryparams.Params) error {
	enc := wire.NewEncoder(nil)

	fields := []string{ds.ID(), ds.Type()}
	if requestColumnsHeader != "" {
		fields = append(fields, requestColumnsHeader)
	}
	fields = append(fields, query, params.ToQueryString())

	for _, f := range fields {
		if err := enc.WriteString(f); err != nil {
			return err
		}
	}

	_, err := w.Write(enc.Bytes())
	return err
}
