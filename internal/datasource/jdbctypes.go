package datasource

import (
	"database/sql"
	"strings"

	"chbridge/internal/chtype"
)

// mapDriverType maps a backend's JDBC-style column type name to a
// chtype.DataType. database/sql's driver.ColumnType reports a
// driver-specific "database type name" rather than a java.sql.Types
// constant, so this takes that name, as the driver reports it, as the
// stand-in for a JDBC type code. An "UNSIGNED" marker in the name is dropped
// here; signedness arrives through the signed argument.
func mapDriverType(databaseTypeName string, signed bool) chtype.DataType {
	name := strings.ToUpper(databaseTypeName)
	name = strings.TrimSpace(strings.ReplaceAll(name, "UNSIGNED", ""))
	// Strip a trailing size annotation some drivers include, e.g. VARCHAR(255).
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}

	switch name {
	case "BIT", "BOOLEAN", "BOOL":
		return chtype.UInt8
	case "TINYINT":
		if signed {
			return chtype.Int8
		}
		return chtype.UInt8
	case "SMALLINT", "YEAR":
		if signed {
			return chtype.Int16
		}
		return chtype.UInt16
	case "INTEGER", "INT", "MEDIUMINT":
		if signed {
			return chtype.Int32
		}
		return chtype.UInt32
	case "BIGINT":
		if signed {
			return chtype.Int64
		}
		return chtype.UInt64
	case "REAL", "FLOAT":
		return chtype.Float32
	case "DOUBLE", "DOUBLE PRECISION":
		return chtype.Float64
	case "NUMERIC", "DECIMAL":
		return chtype.Decimal
	case "DATE":
		return chtype.Date
	case "TIME", "TIMESTAMP", "TIMESTAMPTZ", "DATETIME",
		"TIME WITH TIME ZONE", "TIMESTAMP WITH TIME ZONE":
		return chtype.DateTime64
	case "CHAR", "VARCHAR", "NCHAR", "NVARCHAR", "TEXT", "LONGTEXT",
		"MEDIUMTEXT", "TINYTEXT", "CLOB", "NULL", "UUID", "JSON", "JSONB",
		"BLOB", "VARBINARY", "BINARY":
		return chtype.String
	default:
		// Unrecognized driver type names fall back to String; callers log a
		// warning at the call site.
		return chtype.String
	}
}

// decimalPrecisionScale reads the driver's reported DecimalSize, falling
// back to chtype's own defaulting when the driver can't report it — a
// per-driver metadata quirk swallowed here with a sensible default rather
// than surfaced as an error.
func decimalPrecisionScale(ct *sql.ColumnType) (precision, scale int, precisionSet, scaleSet bool) {
	p, s, ok := ct.DecimalSize()
	if !ok {
		return 0, 0, false, false
	}
	return int(p), int(s), true, true
}

// columnNullable reads the driver's reported nullability, defaulting to
// nullable=true when unknown (the conservative choice: an unexpected null
// should never crash the encoder).
func columnNullable(ct *sql.ColumnType) bool {
	nullable, ok := ct.Nullable()
	if !ok {
		return true
	}
	return nullable
}

// columnSigned guesses signedness from the database type name for drivers
// that don't expose it directly (database/sql has no Signed() probe);
// unsigned is only common in MySQL's "... UNSIGNED" type names.
func columnSigned(databaseTypeName string) bool {
	return !strings.Contains(strings.ToUpper(databaseTypeName), "UNSIGNED")
}
