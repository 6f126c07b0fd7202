package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

type Format string

const (
	FormatSQL     Format = "sql"
	FormatParquet Format = "parquet"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._=-]{0,127}$`)

func FormatOf(key string) (Format, error) {
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	for _, component := range strings.Split(key, "/") {
		if err := validatePathComponent(component, "key component"); err != nil {
			return "", err
		}
	}
	switch strings.ToLower(path.Ext(key)) {
	case ".sql":
		return FormatSQL, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported schema object %q: want .sql or .parquet", key)
	}
}

func IsDirectory(key string) bool {
	return strings.HasSuffix(strings.TrimSpace(key), "/")
}

// TableName derives a SQL table name from an object key, for example
// "lake/page_views.parquet" becomes "page_views".
func TableName(key string) string {
	base := path.Base(strings.TrimSpace(key))
	base = strings.TrimSuffix(base, path.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return name
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
