package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Houeta/geobatch/internal/models"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	// Operator-facing coordinate captions. Polish is the reporting locale of
	// the downstream sheets; English is the catalog fallback.
	message.SetString(language.Polish, "Latitude", "szerokość")
	message.SetString(language.Polish, "Longitude", "długość")
	message.SetString(language.English, "Latitude", "latitude")
	message.SetString(language.English, "Longitude", "longitude")
}

// Writer renders the final batch result into a per-country workbook.
type Writer struct {
	printer *message.Printer
}

// NewWriter builds a writer localizing the coordinate captions to the given
// locale. Unknown locales fall back to English.
func NewWriter(locale string) *Writer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Writer{printer: message.NewPrinter(tag)}
}

// Write partitions rows by country label, one sheet per country named after
// its source sheet, and writes the workbook to path, creating parent
// directories as needed. Unresolved records keep blank coordinate cells.
func (w *Writer) Write(path string, rows []models.Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "output: create directory for %s", path)
		}
	}

	file := xlsx.NewFile()
	for _, group := range groupByCountry(rows) {
		sheetName := fmt.Sprintf("%s (with coords)", group.sheetName)
		sheet, err := file.AddSheet(sheetName)
		if err != nil {
			return eris.Wrapf(err, "output: add sheet %s", sheetName)
		}

		w.writeHeader(sheet)
		for _, row := range group.rows {
			writeRow(sheet, row)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "output: save workbook %s", path)
	}

	return nil
}

type countryGroup struct {
	country   string
	sheetName string
	rows      []models.Row
}

// groupByCountry partitions rows by country label, keeping the order in
// which countries first appear.
func groupByCountry(rows []models.Row) []*countryGroup {
	index := make(map[string]*countryGroup)

	var groups []*countryGroup
	for _, row := range rows {
		group, ok := index[row.CountryLabel]
		if !ok {
			group = &countryGroup{country: row.CountryLabel, sheetName: row.SheetName}
			index[row.CountryLabel] = group
			groups = append(groups, group)
		}
		group.rows = append(group.rows, row)
	}

	return groups
}

// writeHeader emits the column captions. Only the coordinate captions are
// localized; the remaining names are carried verbatim from the input data.
func (w *Writer) writeHeader(sheet *xlsx.Sheet) {
	labels := []string{
		"dm_code", "Strasse", "PLZ", "Ort", "Country", "address_for_geocoding",
		w.printer.Sprintf("Latitude"),
		w.printer.Sprintf("Longitude"),
		"place_id", "geocode_status",
	}

	row := sheet.AddRow()
	for _, label := range labels {
		row.AddCell().SetString(label)
	}
}

func writeRow(sheet *xlsx.Sheet, data models.Row) {
	row := sheet.AddRow()
	row.AddCell().SetString(data.Code)
	row.AddCell().SetString(data.Street)
	row.AddCell().SetString(data.PostalCode)
	row.AddCell().SetString(data.City)
	row.AddCell().SetString(data.CountryLabel)
	row.AddCell().SetString(data.QueryString())

	latCell := row.AddCell()
	lngCell := row.AddCell()
	placeCell := row.AddCell()
	statusCell := row.AddCell()
	if data.Entry == nil {
		return
	}

	if data.Entry.Latitude != nil {
		latCell.SetFloat(*data.Entry.Latitude)
	}
	if data.Entry.Longitude != nil {
		lngCell.SetFloat(*data.Entry.Longitude)
	}
	placeCell.SetString(data.Entry.PlaceID)
	statusCell.SetString(data.Entry.Status)
}
