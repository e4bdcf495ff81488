package datasource

import (
	"fmt"

	"github.com/gocraft/dbr/v2/dialect"
)

// dbrDialect is the subset of gocraft/dbr/v2's per-backend dialect interface
// this package exercises: identifier quoting, so the column-inference
// statement (inferColumns) is built with the right quote
// character for each backend instead of a hand-rolled per-dialect switch —
// **(domain stack)**.
type dbrDialect interface {
	QuoteIdent(s string) string
}

// dialectInfo binds a bridge-level type name to the database/sql driver it
// opens and the dbr dialect used for quoting and the inference statement.
type dialectInfo struct {
	Name       string
	DriverName string
	Quote      dbrDialect
}

var dialects = map[string]dialectInfo{
	"mysql": {Name: "mysql", DriverName: "mysql", Quote: dialect.MySQL},
	"postgres": {Name: "postgres", DriverName: "postgres", Quote: dialect.PostgreSQL},
	"mssql": {Name: "mssql", DriverName: "sqlserver", Quote: dialect.MSSQL},
	"sqlite": {Name: "sqlite", DriverName: "sqlite3", Quote: dialect.SQLite3},
	"clickhouse": {Name: "clickhouse", DriverName: "clickhouse", Quote: dialect.MySQL},
}

// dialectFor looks up a dialectInfo by the bridge's type name, as configured
// on a datasource, as configured for the JDBC-style implementation.
func dialectFor(typeName string) (dialectInfo, error) {
	d, ok := dialects[typeName]
	if !ok {
		return dialectInfo{}, fmt.Errorf("datasource: unknown SQL dialect %q", typeName)
	}
	return d, nil
}

// quoteIdentifier quotes name for d, falling back to backtick-quoting (the
// bridge's own default, backtick-quoting) when
// the dialect is unset.
func (d dialectInfo) quoteIdentifier(name string) string {
	if d.Quote == nil {
		return "`" + name + "`"
	}
	return d.Quote.QuoteIdent(name)
}
