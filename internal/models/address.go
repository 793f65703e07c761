package models

import "fmt"

// AddressRecord represents a single store address extracted from the input workbook.
type AddressRecord struct {
	Code         string // Code is the unique store identifier from the leading column.
	Street       string // Street is the street line of the address.
	PostalCode   string // PostalCode is the postal code, always in integer textual form.
	City         string // City is the town or city name.
	CountryLabel string // CountryLabel is the country the source sheet belongs to.
	SheetName    string // SheetName is the workbook sheet the record was read from.
}

// QueryString returns the normalized free-text address sent to the geocoding
// provider. It is always derived from the record fields and never stored or
// edited by hand, so equal fields always produce an identical string.
func (r AddressRecord) QueryString() string {
	return fmt.Sprintf("%s, %s %s, %s", r.Street, r.PostalCode, r.City, r.CountryLabel)
}
