package schemasource

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// DescribeParquet renders the column layout stored in a parquet footer as a
// CREATE TABLE statement. Row data is never read.
func DescribeParquet(table string, data []byte) (string, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open parquet %s: %w", table, err)
	}
	fields := file.Schema().Fields()
	if len(fields) == 0 {
		return "", fmt.Errorf("parquet %s has no columns", table)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Table: %s (parquet, %d rows)\n", table, file.NumRows())
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table)
	for i, field := range fields {
		fmt.Fprintf(&b, "  %s %s", field.Name(), columnType(field))
		if field.Required() {
			b.WriteString(" NOT NULL")
		}
		if i < len(fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(");")
	return b.String(), nil
}

func columnType(field parquet.Field) string {
	var sqlType string
	if field.Leaf() {
		sqlType = leafType(field.Type())
	} else {
		children := field.Fields()
		parts := make([]string, 0, len(children))
		for _, child := range children {
			parts = append(parts, child.Name()+" "+columnType(child))
		}
		sqlType = "STRUCT(" + strings.Join(parts, ", ") + ")"
	}
	if field.Repeated() {
		sqlType += "[]"
	}
	return sqlType
}

func leafType(t parquet.Type) string {
	if logical := t.LogicalType(); logical != nil {
		switch {
		case logical.UTF8 != nil, logical.Enum != nil, logical.Json != nil:
			return "VARCHAR"
		case logical.UUID != nil:
			return "UUID"
		case logical.Date != nil:
			return "DATE"
		case logical.Time != nil:
			return "TIME"
		case logical.Timestamp != nil:
			return "TIMESTAMP"
		case logical.Decimal != nil:
			return fmt.Sprintf("DECIMAL(%d, %d)", logical.Decimal.Precision, logical.Decimal.Scale)
		case logical.Integer != nil:
			return integerType(int(logical.Integer.BitWidth), logical.Integer.IsSigned)
		}
	}
	switch t.Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INTEGER"
	case parquet.Int64:
		return "BIGINT"
	case parquet.Int96:
		return "TIMESTAMP"
	case parquet.Float:
		return "REAL"
	case parquet.Double:
		return "DOUBLE"
	default:
		return "BLOB"
	}
}

func integerType(bits int, signed bool) string {
	var name string
	switch bits {
	case 8:
		name = "TINYINT"
	case 16:
		name = "SMALLINT"
	case 32:
		name = "INTEGER"
	default:
		name = "BIGINT"
	}
	if !signed {
		name = "U" + name
	}
	return name
}
