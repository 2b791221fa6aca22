package domain

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ColumnIndexes binds each semantic column key to its 0-based position in
// the grid.
type ColumnIndexes map[string]int

// ResolveHeaders scans the configured header row and matches each header
// text from the columns mapping. Duplicate header names resolve to the LAST
// occurrence and are logged as a warning. A mapped header missing from the
// sheet fails the resolution so the operation aborts before any send.
func ResolveHeaders(header []string, mapping map[string]string, log *zap.Logger) (ColumnIndexes, error) {
	positions := make(map[string]int, len(header))
	for idx, cell := range header {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if prev, dup := positions[key]; dup && log != nil {
			log.Warn("duplicate header name, using last occurrence",
				zap.String("header", name),
				zap.Int("previous_index", prev),
				zap.Int("index", idx),
			)
		}
		positions[key] = idx
	}

	indexes := make(ColumnIndexes, len(mapping))
	var missing []string
	for key, headerText := range mapping {
		idx, ok := positions[strings.ToLower(strings.TrimSpace(headerText))]
		if !ok {
			missing = append(missing, headerText)
			continue
		}
		indexes[key] = idx
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnsUnmapped, strings.Join(missing, ", "))
	}
	return indexes, nil
}

// Cell returns the value at the semantic column for a row, or "" when the
// row is ragged and does not reach that column.
func (c ColumnIndexes) Cell(row []string, key string) string {
	idx, ok := c[key]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
