package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/tiffinbill/internal/sheet/domain"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SheetRow stores one grid row for the standalone deployment, where the
// billing sheet lives in the database instead of a hosted spreadsheet.
type SheetRow struct {
	RowIndex  int            `gorm:"primaryKey;column:row_index;autoIncrement:false" json:"row_index"`
	Cells     datatypes.JSON `gorm:"not null" json:"cells"`
	RowColor  string         `gorm:"size:16" json:"row_color"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SheetRow) TableName() string {
	return "sheet_rows"
}

type Params struct {
	fx.In

	DB *gorm.DB
}

type store struct {
	db *gorm.DB
}

// Provide returns the database-backed row store.
func Provide(p Params) domain.RowStore {
	return &store{db: p.DB}
}

func (s *store) ReadAllRows(ctx context.Context) ([][]string, error) {
	var rows []SheetRow
	if err := s.db.WithContext(ctx).Order("row_index asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	maxIndex := rows[len(rows)-1].RowIndex
	grid := make([][]string, maxIndex)
	for i := range grid {
		grid[i] = []string{}
	}
	for _, row := range rows {
		var cells []string
		if err := json.Unmarshal(row.Cells, &cells); err != nil {
			return nil, fmt.Errorf("row %d cells corrupt: %w", row.RowIndex, err)
		}
		grid[row.RowIndex-1] = cells
	}
	return grid, nil
}

func (s *store) WriteColumn(ctx context.Context, startRow, colIndex int, values, colors []string) error {
	if len(values) != len(colors) {
		return fmt.Errorf("values and colors length mismatch: %d != %d", len(values), len(colors))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, value := range values {
			rowIndex := startRow + i

			var row SheetRow
			err := tx.First(&row, "row_index = ?", rowIndex).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				row = SheetRow{RowIndex: rowIndex, Cells: mustCells(nil)}
			} else if err != nil {
				return err
			}

			var cells []string
			if len(row.Cells) > 0 {
				if err := json.Unmarshal(row.Cells, &cells); err != nil {
					return fmt.Errorf("row %d cells corrupt: %w", rowIndex, err)
				}
			}
			for len(cells) <= colIndex {
				cells = append(cells, "")
			}
			cells[colIndex] = value

			row.Cells = mustCells(cells)
			row.RowColor = colors[i]
			row.UpdatedAt = time.Now().UTC()
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func mustCells(cells []string) datatypes.JSON {
	if cells == nil {
		cells = []string{}
	}
	raw, _ := json.Marshal(cells)
	return raw
}
