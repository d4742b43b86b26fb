package sqlpoll

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cursorTimeLayout is the canonical text form of time-valued cursor
// tokens. Microsecond precision matches what both engines store.
const cursorTimeLayout = "2006-01-02 15:04:05.000000"

// updateCursorNames are candidate cursor columns touched on every write,
// in preference order.
var updateCursorNames = []string{
	"updated_at", "modified_at", "last_modified", "last_updated",
	"updated_on", "update_time", "modified_on",
}

// versionCursorNames are integer version candidates.
var versionCursorNames = []string{"version", "revision", "row_version"}

// creationCursorNames are creation-time candidates. They only see inserts,
// which still makes them a usable watermark for append-only tables.
var creationCursorNames = []string{
	"created_at", "inserted_at", "created_on", "create_time",
}

// column is one information_schema row.
type column struct {
	name     string
	dataType string
}

func isTimeType(dataType string) bool {
	t := strings.ToLower(dataType)
	return strings.Contains(t, "timestamp") || strings.Contains(t, "datetime")
}

func isIntegerType(dataType string) bool {
	t := strings.ToLower(dataType)
	return strings.Contains(t, "int") || t == "numeric" || t == "decimal"
}

// pickCursorColumn selects the natural cursor column from a table's
// columns, or "" when the table has none. Candidates match
// case-insensitively, but the returned name is the column's real name:
// it is quoted into queries and used to index scanned row maps, both of
// which are case-sensitive.
func pickCursorColumn(cols []column) string {
	byName := make(map[string]column, len(cols))
	for _, c := range cols {
		byName[strings.ToLower(c.name)] = c
	}
	for _, name := range updateCursorNames {
		if c, ok := byName[name]; ok && isTimeType(c.dataType) {
			return c.name
		}
	}
	for _, name := range versionCursorNames {
		if c, ok := byName[name]; ok && isIntegerType(c.dataType) {
			return c.name
		}
	}
	for _, name := range creationCursorNames {
		if c, ok := byName[name]; ok && isTimeType(c.dataType) {
			return c.name
		}
	}
	return ""
}

// isCreationColumn reports whether name is a creation-time column, used by
// the insert/update heuristic.
func isCreationColumn(name string) bool {
	n := strings.ToLower(name)
	for _, c := range creationCursorNames {
		if n == c {
			return true
		}
	}
	return false
}

// cursorToken renders a scanned cursor value in its canonical text form.
// Tokens of one column type compare consistently with the SQL ordering.
func cursorToken(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(cursorTimeLayout)
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}
