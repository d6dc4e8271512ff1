package export

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/inferloop/tsforecast/pkg/models"
)

// TextExporter writes a human readable summary for terminals
type TextExporter struct{}

// Format returns the exporter format
func (te *TextExporter) Format() ExportFormat {
	return FormatText
}

// ContentType returns the MIME type of the output
func (te *TextExporter) ContentType() string {
	return "text/plain"
}

// Export writes the summary, the insights and the future rows
func (te *TextExporter) Export(ctx context.Context, writer io.Writer, result *models.Result, options Options) error {
	doc := NewDocument(result, options)

	fmt.Fprintf(writer, "%s\n", doc.Message)
	if doc.RunID != "" {
		fmt.Fprintf(writer, "Run:       %s\n", doc.RunID)
	}
	fmt.Fprintf(writer, "Rows:      %d\n", doc.RowCount)
	fmt.Fprintf(writer, "Anomalies: %d\n", len(doc.Anomalies))
	fmt.Fprintf(writer, "MAE: %g  RMSE: %g  MAPE: %g%%\n", doc.Metrics.MAE, doc.Metrics.RMSE, doc.Metrics.MAPE)

	if len(doc.Insights) > 0 {
		fmt.Fprintln(writer, "\nInsights:")
		for _, insight := range doc.Insights {
			fmt.Fprintf(writer, "  - %s\n", insight)
		}
	}

	future := result.Future()
	if len(future) == 0 {
		return nil
	}

	fmt.Fprintln(writer, "\nForecast:")
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ds\tyhat\tyhat_lower\tyhat_upper")
	for _, p := range future {
		if err := checkContext(ctx); err != nil {
			return err
		}
		precision := options.Precision
		if precision <= 0 {
			precision = 2
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.Timestamp.Format(TimestampLayout),
			formatValue(p.Value, precision),
			formatValue(p.Lower, precision),
			formatValue(p.Upper, precision))
	}
	return tw.Flush()
}
