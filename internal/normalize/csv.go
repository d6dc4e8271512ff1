package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a header row followed by data rows
func ReadCSV(r io.Reader) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewSchemaError(errors.CodeEmptyTable, errors.ErrEmptyTable)
	}
	if err != nil {
		return nil, errors.NewSchemaError(errors.CodeEmptyTable, fmt.Errorf("failed to read CSV header: %w", err))
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewSchemaError(errors.CodeEmptyTable, fmt.Errorf("failed to read CSV row: %w", err))
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, errors.NewSchemaError(errors.CodeEmptyTable, errors.ErrEmptyTable)
	}

	return models.NewTable(columns, rows), nil
}

// WriteCSV writes a table with its header row
func WriteCSV(w io.Writer, table *models.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}
