package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	enc "github.com/MrJamesThe3rd/freightbook/internal/encoding"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

// CSVParser reads delimited text exports. The charset and the delimiter
// (comma, semicolon or tab) are detected from the content.
type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(r io.Reader) ([]ledger.ShipmentParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return parseRows(rows)
}

// detectDelimiter picks the candidate that occurs most often over the first
// lines, preferring comma on ties.
func detectDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t'}
	counts := make(map[rune]int, len(candidates))

	sc := bufio.NewScanner(bytes.NewReader(data))
	for lines := 0; lines < 20 && sc.Scan(); lines++ {
		for _, c := range candidates {
			counts[c] += bytes.Count(sc.Bytes(), []byte(string(c)))
		}
	}

	best := ','
	for _, c := range candidates {
		if counts[c] > counts[best] {
			best = c
		}
	}

	return best
}
