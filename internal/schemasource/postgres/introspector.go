package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const columnsQuery = `
SELECT table_name, column_name, data_type, is_nullable, character_maximum_length, numeric_precision, numeric_scale
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

const primaryKeysQuery = `
SELECT tc.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY tc.table_name, kcu.ordinal_position`

type Introspector struct {
	db     *sql.DB
	schema string
}

func NewIntrospector(db *sql.DB, schema string) *Introspector {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	return &Introspector{db: db, schema: schema}
}

func (i *Introspector) Name() string {
	return "postgres"
}

type column struct {
	name      string
	dataType  string
	nullable  bool
	maxLength sql.NullInt64
	precision sql.NullInt64
	scale     sql.NullInt64
}

type table struct {
	name       string
	columns    []column
	primaryKey []string
}

func (i *Introspector) Load(ctx context.Context) (string, error) {
	tables, err := i.loadColumns(ctx)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("schema %q has no tables", i.schema)
	}
	if err := i.loadPrimaryKeys(ctx, tables); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, renderTable(t))
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

func (i *Introspector) loadColumns(ctx context.Context) ([]*table, error) {
	rows, err := i.db.QueryContext(ctx, columnsQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("query columns for schema %q: %w", i.schema, err)
	}
	defer rows.Close()

	var tables []*table
	for rows.Next() {
		var (
			tableName  string
			col        column
			isNullable string
		)
		if err := rows.Scan(&tableName, &col.name, &col.dataType, &isNullable, &col.maxLength, &col.precision, &col.scale); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		col.nullable = strings.EqualFold(isNullable, "YES")
		if len(tables) == 0 || tables[len(tables)-1].name != tableName {
			tables = append(tables, &table{name: tableName})
		}
		current := tables[len(tables)-1]
		current.columns = append(current.columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	return tables, nil
}

func (i *Introspector) loadPrimaryKeys(ctx context.Context, tables []*table) error {
	byName := make(map[string]*table, len(tables))
	for _, t := range tables {
		byName[t.name] = t
	}

	rows, err := i.db.QueryContext(ctx, primaryKeysQuery, i.schema)
	if err != nil {
		return fmt.Errorf("query primary keys for schema %q: %w", i.schema, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return fmt.Errorf("scan primary key row: %w", err)
		}
		if t, ok := byName[tableName]; ok {
			t.primaryKey = append(t.primaryKey, columnName)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate primary key rows: %w", err)
	}
	return nil
}

func renderTable(t *table) string {
	lines := make([]string, 0, len(t.columns)+1)
	for _, col := range t.columns {
		line := "  " + col.name + " " + columnType(col)
		if !col.nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if len(t.primaryKey) > 0 {
		lines = append(lines, "  PRIMARY KEY ("+strings.Join(t.primaryKey, ", ")+")")
	}
	return fmt.Sprintf("-- Table: %s\nCREATE TABLE %s (\n%s\n);", t.name, t.name, strings.Join(lines, ",\n"))
}

func columnType(col column) string {
	switch strings.ToLower(col.dataType) {
	case "character varying":
		if col.maxLength.Valid {
			return fmt.Sprintf("VARCHAR(%d)", col.maxLength.Int64)
		}
		return "VARCHAR"
	case "character":
		if col.maxLength.Valid {
			return fmt.Sprintf("CHAR(%d)", col.maxLength.Int64)
		}
		return "CHAR"
	case "numeric":
		if col.precision.Valid && col.scale.Valid {
			return fmt.Sprintf("DECIMAL(%d, %d)", col.precision.Int64, col.scale.Int64)
		}
		return "DECIMAL"
	case "timestamp without time zone":
		return "TIMESTAMP"
	case "timestamp with time zone":
		return "TIMESTAMPTZ"
	case "time without time zone":
		return "TIME"
	case "double precision":
		return "DOUBLE PRECISION"
	default:
		return strings.ToUpper(col.dataType)
	}
}
