package datasource

import (
	gosql "database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chbridge/internal/chtype"
	"chbridge/internal/config"
	"chbridge/internal/logger"
	"chbridge/internal/queryparams"
	"chbridge/internal/registry"
	"chbridge/internal/schema"
	"chbridge/internal/wire"

	"context"
)

// SQLDataSource is the JDBC-style DataSource implementation: a pooled
// database/sql backend with driver-metadata-based column
// inference and native-format row streaming.
type SQLDataSource struct {
	id       string
	typeName string
	quote    string
	timezone string
	digest   string

	pool          *gosql.DB
	dialect       dialectInfo
	customColumns schema.ColumnList
	parameters    queryparams.Params

	cache *columnsCache
	log   logger.Logger

	generation uuid.UUID // per-instance tag, bumped on each (re)construction
	closeOnce  sync.Once
}

// NewSQLDataSource builds a pooled SQL DataSource for cfg. The connection
// string is resolved through resolver before the pool opens; no other
// config value goes through the resolver.
func NewSQLDataSource(resolver *registry.Resolver, cfg config.DataSourceConfig, log logger.Logger) (*SQLDataSource, error) {
	if log == nil {
		log = logger.Discard
	}

	d, err := dialectFor(cfg.Type)
	if err != nil {
		return nil, err
	}

	connStr := cfg.ConnectionString
	if resolver != nil {
		connStr = resolver.ResolveWithTimeout(connStr, 5*time.Second)
	}

	pool, err := gosql.Open(d.DriverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("datasource: open %q: %w", cfg.ID, err)
	}

	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 5
	}
	minIdle := cfg.MinIdle
	if minIdle <= 0 {
		minIdle = 1
	}
	pool.SetMaxOpenConns(maxPool)
	pool.SetMaxIdleConns(minIdle)
	pool.SetConnMaxLifetime(30 * time.Minute)

	digest, err := config.Digest(cfg)
	if err != nil {
		return nil, fmt.Errorf("datasource: digest %q: %w", cfg.ID, err)
	}

	quote := cfg.QuoteIdentifier
	if quote == "" {
		quote = "`"
	}

	custom := schema.New()
	for _, cc := range cfg.CustomColumns {
		col, err := schema.NewColumnWithArgs(cc.Name, chtype.DataType(cc.Type), cc.Nullable, cc.Precision, cc.Scale, cc.Timezone, cc.Precision != 0, cc.Scale != 0)
		if err != nil {
			return nil, fmt.Errorf("datasource: custom column %q: %w", cc.Name, err)
		}
		custom = custom.Append(col)
	}

	params, err := queryparams.Defaults().MergeFromJSON(cfg.Parameters)
	if err != nil {
		return nil, fmt.Errorf("datasource: parameters %q: %w", cfg.ID, err)
	}

	return &SQLDataSource{
		id:            cfg.ID,
		typeName:      cfg.Type,
		quote:         quote,
		timezone:      cfg.Timezone,
		digest:        digest,
		pool:          pool,
		dialect:       d,
		customColumns: custom,
		parameters:    params,
		cache:         newColumnsCache(defaultCacheSize, defaultCacheTTL),
		log:           log,
		generation:    uuid.New(),
	}, nil
}

func (s *SQLDataSource) ID() string                          { return s.id }
func (s *SQLDataSource) Type() string                         { return s.typeName }
func (s *SQLDataSource) QuoteIdentifier() string              { return s.quote }
func (s *SQLDataSource) Timezone() string                     { return s.timezone }
func (s *SQLDataSource) Parameters() queryparams.Params       { return s.parameters }
func (s *SQLDataSource) CustomColumns() schema.ColumnList     { return s.customColumns }
func (s *SQLDataSource) Digest() string                       { return s.digest }
func (s *SQLDataSource) NewQueryParameters(caller queryparams.Params) queryparams.Params {
	return s.parameters.MergeFrom(caller)
}

// Close releases the pool; idempotent.
func (s *SQLDataSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pool.Close()
	})
	return err
}

// GetColumns returns the ColumnList for query, using the per-source cache
// keyed by (schemaName, query).
func (s *SQLDataSource) GetColumns(ctx context.Context, schemaName, query string) (schema.ColumnList, error) {
	key := schemaName + "\x00" + query
	if cols, ok := s.cache.get(key); ok {
		return cols, nil
	}

	cols, err := s.inferColumns(ctx, schemaName, query)
	if err != nil {
		return schema.ColumnList{}, err
	}
	s.cache.put(key, cols)
	return cols, nil
}

// inferColumns probes the backend for the columns query would produce.
func (s *SQLDataSource) inferColumns(ctx context.Context, schemaName, query string) (schema.ColumnList, error) {
	q := query
	if !strings.ContainsAny(query, " \t\n") {
		q = s.selectStarStatement(schemaName, query)
	}

	rows, err := s.pool.QueryContext(ctx, q)
	if err != nil {
		return schema.ColumnList{}, fmt.Errorf("datasource: inferColumns: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return schema.ColumnList{}, fmt.Errorf("datasource: ColumnTypes: %w", err)
	}

	cols := make([]schema.ColumnInfo, 0, len(colTypes))
	for _, ct := range colTypes {
		col, err := s.columnFromDriverType(ct)
		if err != nil {
			s.log.Warn("datasource: %s: column %q: %v", s.id, ct.Name(), err)
			continue
		}
		cols = append(cols, col)
	}
	return schema.New(cols...), nil
}

// selectStarStatement builds the "SELECT * FROM {quote}{schema}{quote}.{quote}{table}{quote}
// WHERE 1 = 0" probe statement, quoted per dialect.
func (s *SQLDataSource) selectStarStatement(schemaName, table string) string {
	qTable := s.dialect.quoteIdentifier(table)
	if schemaName == "" {
		return fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", qTable)
	}
	return fmt.Sprintf("SELECT * FROM %s.%s WHERE 1 = 0", s.dialect.quoteIdentifier(schemaName), qTable)
}

func (s *SQLDataSource) columnFromDriverType(ct *gosql.ColumnType) (schema.ColumnInfo, error) {
	typeName := ct.DatabaseTypeName()
	signed := columnSigned(typeName)
	t := mapDriverType(typeName, signed)
	nullable := columnNullable(ct)

	precision, scale, pSet, sSet := 0, 0, false, false
	if chtype.UsesPrecisionScale(t) {
		precision, scale, pSet, sSet = decimalPrecisionScale(ct)
	}

	tz := ""
	if chtype.UsesTimezone(t) {
		tz = s.timezone
	}

	return schema.NewColumnWithArgs(ct.Name(), t, nullable, precision, scale, tz, pSet, sSet)
}

// ExecuteQuery runs a raw query and streams its rows to w.
func (s *SQLDataSource) ExecuteQuery(ctx context.Context, query string, requestColumns schema.ColumnList, params queryparams.Params, w io.Writer) error {
	columns := requestColumns
	if columns.Size() == 0 {
		var err error
		columns, err = s.GetColumns(ctx, "", query)
		if err != nil {
			return err
		}
	}
	return s.stream(ctx, query, columns, params, w)
}

// ExecuteNamedQuery runs a named query: requestColumns are remapped to
// positions in nq's own column list by name,
// then delegated to the same streaming path.
func (s *SQLDataSource) ExecuteNamedQuery(ctx context.Context, nq registry.NamedQuery, requestColumns schema.ColumnList, params queryparams.Params, w io.Writer) error {
	named := nq.Columns
	if !nq.HasCols {
		var err error
		named, err = s.GetColumns(ctx, "", nq.Query)
		if err != nil {
			return err
		}
	}

	columns, err := remapColumns(requestColumns, named)
	if err != nil {
		return err
	}
	return s.stream(ctx, nq.Query, columns, params, w)
}

// stream executes query and writes its rows to w in native binary form.
func (s *SQLDataSource) stream(ctx context.Context, query string, columns schema.ColumnList, params queryparams.Params, w io.Writer) error {
	execQuery := query
	if params.MaxRows > 0 {
		execQuery = fmt.Sprintf("SELECT * FROM (%s) chbridge_limited LIMIT %d", query, params.MaxRows)
	}

	rows, err := s.pool.QueryContext(ctx, execQuery)
	if err != nil {
		return fmt.Errorf("datasource: query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	resultCols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("datasource: columns: %w", err)
	}

	width := len(resultCols)
	scanDest := make([]interface{}, width)
	scanBuf := make([]interface{}, width)
	for i := range scanDest {
		scanDest[i] = &scanBuf[i]
	}

	enc := wire.NewEncoder(nil)
	skipped := 0

	// offset and position both express absolute row positioning; position
	// is an alternate spelling used by some callers, so the
	// larger of the two wins.
	skipTo := params.Offset
	if params.Position > skipTo {
		skipTo = params.Position
	}

	for rows.Next() {
		if skipped < skipTo {
			skipped++
			// Still must Scan to advance the driver cursor correctly for
			// some drivers; a throwaway scan is cheapest here.
			if err := rows.Scan(scanDest...); err != nil {
				return fmt.Errorf("datasource: scan (offset skip): %w", err)
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return err // context deadline exceeded or client disconnected
		}

		if err := rows.Scan(scanDest...); err != nil {
			return fmt.Errorf("datasource: scan: %w", err)
		}

		enc.Reset()

		if params.ShowDatasourceColumn {
			if err := enc.WriteString(s.id); err != nil {
				return err
			}
		}
		if params.ShowCustomColumns {
			for i := 0; i < s.customColumns.Size(); i++ {
				cc, _ := s.customColumns.Column(i)
				if err := writeColumnDefault(enc, cc); err != nil {
					return err
				}
			}
		}

		if err := s.encodeRow(enc, columns, scanBuf, params); err != nil {
			return err
		}
		if _, err := w.Write(enc.Bytes()); err != nil {
			return err // response writer closed mid-stream
		}
	}
	return rows.Err()
}

// encodeRow writes one row's columns using requestColumns' resolved index
// (when set by named-query remapping) or sequential order otherwise.
func (s *SQLDataSource) encodeRow(enc *wire.Encoder, columns schema.ColumnList, scanBuf []interface{}, params queryparams.Params) error {
	for i := 0; i < columns.Size(); i++ {
		col, err := columns.Column(i)
		if err != nil {
			return err
		}

		srcIdx := i
		if col.Index() != -1 {
			srcIdx = col.Index()
		}
		if srcIdx >= len(scanBuf) {
			return fmt.Errorf("datasource: column %q index %d out of range", col.Name, srcIdx)
		}
		val := scanBuf[srcIdx]

		if col.Nullable {
			if val == nil {
				if params.NullAsDefault {
					if err := enc.WriteNonNull(); err != nil {
						return err
					}
					if err := writeColumnDefault(enc, col); err != nil {
						return err
					}
					continue
				}
				if err := enc.WriteNull(); err != nil {
					return err
				}
				continue
			}
			if err := enc.WriteNonNull(); err != nil {
				return err
			}
		}

		if err := writeValue(enc, col, val); err != nil {
			return err
		}
	}
	return nil
}
