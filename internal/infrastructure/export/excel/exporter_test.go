package excel

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

func TestExportWritesHeaderAndRows(t *testing.T) {
	exporter := NewExporter()
	locations := []domain.Location{
		{
			ID:           "ChIJabc",
			Name:         "Harbor Grill",
			Address:      "1 Pier Rd",
			BusinessType: domain.TypeRestaurant,
			Coordinate:   &domain.Coordinate{Lat: 10, Lon: 20},
			RecordCount:  3,
		},
		{
			ID:           "name:corner pharmacy",
			Name:         "Corner Pharmacy",
			BusinessType: domain.TypePharmacy,
			RecordCount:  1,
		},
	}

	var buf bytes.Buffer
	if err := exporter.Export(locations, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	file, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()

	rows, err := file.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Records" {
		t.Fatalf("unexpected header row %v", rows[0])
	}
	if rows[1][1] != "Harbor Grill" || rows[1][3] != "restaurant" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	// Locations without coordinates leave the lat/lon cells empty.
	if len(rows[2]) > 4 && rows[2][4] != "" {
		t.Fatalf("expected empty latitude for second row, got %q", rows[2][4])
	}
}

func TestExportEmptyCatalogStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter().Export(nil, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	file, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()

	rows, err := file.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d", len(rows))
	}
}
