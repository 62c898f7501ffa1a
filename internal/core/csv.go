package core

// csv.go is the CSV ingestion and export layer.
//
// Ingestion reads a whole file into memory and runs two repair passes:
//  1. textfix.RepairBuffer decodes the bytes under the first candidate
//     encoding that yields clean text
//  2. after tokenizing, every header and cell that still shows artifacts is
//     passed through textfix.RepairText
//
// The second pass catches corruption that only becomes visible per field,
// such as a BOM glued to the first header or a single pasted cell.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/asistencia/internal/textfix"
)

// Document is a tokenized CSV file.
type Document struct {
	Header    []string
	Rows      [][]string
	Lines     []int // source line of each row, 1-based
	Delimiter rune
	Repaired  int // fields changed by the per-field repair pass
}

// DecodeCSV decodes raw file bytes of unknown encoding into a Document.
// Blank rows are dropped.
func DecodeCSV(data []byte) (*Document, error) {
	return parseCSV(textfix.RepairBuffer(data), true)
}

// ParseUTF8CSV tokenizes text that is already known to be UTF-8, such as a
// file this service wrote itself. Only the BOM is stripped; cells are kept
// byte for byte, including any U+FFFD.
func ParseUTF8CSV(text string) (*Document, error) {
	return parseCSV(text, false)
}

func parseCSV(text string, repairFields bool) (*Document, error) {
	if strings.TrimSpace(textfix.StripBOM(text)) == "" {
		return nil, ErrEmptyFile
	}

	doc := &Document{Delimiter: sniffDelimiter(text)}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = doc.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	first := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		if first {
			record[0] = textfix.StripBOM(record[0])
		}
		for i, cell := range record {
			if !repairFields || !textfix.HasArtifacts(cell) {
				continue
			}
			if fixed := textfix.RepairText(cell); fixed != cell {
				record[i] = fixed
				doc.Repaired++
			}
		}

		if first {
			doc.Header = record
			first = false
			continue
		}
		if blankRow(record) {
			continue
		}
		line, _ := r.FieldPos(0)
		doc.Rows = append(doc.Rows, record)
		doc.Lines = append(doc.Lines, line)
	}

	if doc.Header == nil {
		return nil, ErrEmptyFile
	}
	return doc, nil
}

// sniffDelimiter picks ',', ';' or tab by counting unquoted occurrences in
// the first line. Spreadsheets with a Spanish locale export with ';'.
func sniffDelimiter(text string) rune {
	line := textfix.StripBOM(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, c := range line {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',', ';', '\t':
			if !inQuotes {
				counts[c]++
			}
		}
	}

	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes header and rows as comma-separated UTF-8. With bom set the
// output starts with U+FEFF so spreadsheet programs pick UTF-8.
func WriteCSV(w io.Writer, header []string, rows [][]string, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, "\uFEFF"); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
