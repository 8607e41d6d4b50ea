package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the table with a header row. Null cells are empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(t.columns))
	for _, row := range t.rows {
		for i, c := range t.columns {
			record[i] = String(row[c])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV. Cells come back as strings;
// empty cells are null.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := New(header...)
	if len(t.columns) != len(header) {
		return nil, fmt.Errorf("duplicate column in header")
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", t.Len()+1, err)
		}

		row := make(Row, len(header))
		for i, c := range header {
			if record[i] != "" {
				row[c] = record[i]
			}
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}
