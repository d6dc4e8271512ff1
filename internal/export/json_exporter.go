package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/inferloop/tsforecast/pkg/models"
)

// JSONExporter writes the response document
type JSONExporter struct{}

// Format returns the exporter format
func (je *JSONExporter) Format() ExportFormat {
	return FormatJSON
}

// ContentType returns the MIME type of the output
func (je *JSONExporter) ContentType() string {
	return "application/json"
}

// Export encodes the document built from result
func (je *JSONExporter) Export(ctx context.Context, writer io.Writer, result *models.Result, options Options) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	encoder := json.NewEncoder(writer)
	if options.Pretty {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(NewDocument(result, options))
}
