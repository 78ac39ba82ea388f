package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

const sheetName = "Locations"

var headers = []string{"ID", "Name", "Address", "Type", "Latitude", "Longitude", "Records"}

// Exporter renders the location catalog as an xlsx workbook for office
// staff who reconcile maintenance history outside the app.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(locations []domain.Location, w io.Writer) error {
	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	if err := file.SetSheetName(file.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := file.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, location := range locations {
		row := i + 2
		values := []any{
			location.ID,
			location.Name,
			location.Address,
			string(location.BusinessType),
			nil,
			nil,
			location.RecordCount,
		}
		if location.Coordinate != nil {
			values[4] = location.Coordinate.Lat
			values[5] = location.Coordinate.Lon
		}
		for col, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := file.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := file.SetColWidth(sheetName, "A", "C", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
