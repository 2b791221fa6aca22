package domain

import (
	"context"
	"errors"
)

// RowStore is the external spreadsheet collaborator. Reads happen once up
// front as a full-range batch and writes once at the end, never interleaved
// with the send loop.
type RowStore interface {
	// ReadAllRows returns the full grid including the header row; index 0
	// is sheet row 1.
	ReadAllRows(ctx context.Context) ([][]string, error)
	// WriteColumn batch-writes values into one column and row background
	// colors starting at the 1-based startRow.
	WriteColumn(ctx context.Context, startRow, colIndex int, values, colors []string) error
}

var (
	ErrHeaderRowMissing = errors.New("header_row_missing")
	ErrColumnsUnmapped  = errors.New("columns_unmapped")
)
