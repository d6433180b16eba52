package importer

import (
	"io"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

type Importer interface {
	Parse(r io.Reader) ([]ledger.ShipmentParams, error)
}
