package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/inferloop/tsforecast/pkg/models"
)

// CSVExporter writes forecast rows as ds,yhat,yhat_lower,yhat_upper
type CSVExporter struct{}

// Format returns the exporter format
func (ce *CSVExporter) Format() ExportFormat {
	return FormatCSV
}

// ContentType returns the MIME type of the output
func (ce *CSVExporter) ContentType() string {
	return "text/csv"
}

// Export writes the data rows of result
func (ce *CSVExporter) Export(ctx context.Context, writer io.Writer, result *models.Result, options Options) error {
	csvWriter := csv.NewWriter(writer)

	if err := csvWriter.Write([]string{"ds", "yhat", "yhat_lower", "yhat_upper"}); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range selectRows(result, options) {
		if err := checkContext(ctx); err != nil {
			return err
		}

		row := []string{
			p.Timestamp.Format(TimestampLayout),
			formatValue(p.Value, options.Precision),
			formatValue(p.Lower, options.Precision),
			formatValue(p.Upper, options.Precision),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// formatValue formats with a fixed precision, or the shortest exact form when
// precision is not positive
func formatValue(value float64, precision int) string {
	if precision <= 0 {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}
