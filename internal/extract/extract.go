package extract

import (
	"strings"

	"github.com/Houeta/geobatch/internal/models"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Column positions inside a store sheet. The sheets carry no usable header
// row, so cells are addressed positionally.
const (
	colCode   = 0
	colStreet = 3
	colPostal = 4
	colCity   = 5
)

// Rows whose identifier column matches one of these are section headers or
// subtotals, not stores.
var sentinelRows = []string{"dm-Markt", "Gesamt"}

// streetHeader is the repeated column caption that shows up inside the
// street column of some sheets.
const streetHeader = "Strasse"

// SheetSpec names one input sheet and the country label stamped on every
// record extracted from it.
type SheetSpec struct {
	Name    string
	Country string
}

// Sheets reads the workbook at path and extracts the address records of
// every listed sheet, in order. A listed sheet missing from the workbook is
// an error: silently producing an empty country would corrupt the output.
func Sheets(path string, specs []SheetSpec) ([]models.AddressRecord, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: open workbook %s", path)
	}

	var records []models.AddressRecord
	for _, spec := range specs {
		sheet, ok := file.Sheet[spec.Name]
		if !ok {
			return nil, eris.Errorf("extract: sheet %q not found in %s", spec.Name, path)
		}
		records = append(records, sheetRecords(sheet, spec)...)
	}

	return records, nil
}

// sheetRecords converts the rows of one sheet. Sentinel rows and rows
// without a street are skipped; an address without a street cannot be
// geocoded. Postal codes lose any trailing fraction.
func sheetRecords(sheet *xlsx.Sheet, spec SheetSpec) []models.AddressRecord {
	var records []models.AddressRecord
	for _, row := range sheet.Rows {
		cells := rowStrings(row)

		code := strings.TrimSpace(cellAt(cells, colCode))
		if code == "" || isSentinel(code) {
			continue
		}

		street := strings.TrimSpace(cellAt(cells, colStreet))
		if street == "" || street == streetHeader {
			continue
		}

		records = append(records, models.AddressRecord{
			Code:         code,
			Street:       street,
			PostalCode:   truncatePostal(cellAt(cells, colPostal)),
			City:         strings.TrimSpace(cellAt(cells, colCity)),
			CountryLabel: spec.Country,
			SheetName:    spec.Name,
		})
	}

	return records
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func isSentinel(value string) bool {
	for _, sentinel := range sentinelRows {
		if value == sentinel {
			return true
		}
	}
	return false
}

// truncatePostal reduces postal codes that arrive as numeric text with a
// trailing fraction, e.g. "01067.0", to their integer textual form.
func truncatePostal(raw string) string {
	value := strings.TrimSpace(raw)
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		value = value[:idx]
	}
	return value
}
