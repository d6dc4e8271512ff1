package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/cmd/cli/config"
	"github.com/inferloop/tsforecast/internal/normalize"
)

type NormalizeOptions struct {
	InputFile  string
	OutputFile string
}

func NewNormalizeCmd(globals *GlobalOptions) *cobra.Command {
	opts := &NormalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Detect the date and value columns and print the cleaned series",
		Long: `Detect the date and value columns of a CSV file and write the cleaned
series as timestamp,value CSV. The detection summary goes to stderr.`,
		Example: `  tsforecast-cli normalize --input sales.csv > cleaned.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, globals, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputFile, "input", "i", "", "Input CSV file (- for stdin, required)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "-", "Output file (- for stdout)")

	cmd.MarkFlagRequired("input")

	return cmd
}

func runNormalize(cmd *cobra.Command, globals *GlobalOptions, opts *NormalizeOptions) error {
	cfg, err := config.LoadConfig(globals.ConfigFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, globals.Verbose, cmd.ErrOrStderr())

	table, err := readTable(cmd, opts.InputFile)
	if err != nil {
		return err
	}

	series, detection, err := normalize.NewNormalizer(logger).Normalize(table)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Date column:  %s (%s, %s)\n", detection.DateColumn, detection.DateRule, detection.DateConfidence)
	fmt.Fprintf(stderr, "Value column: %s (%s, %s)\n", detection.ValueColumn, detection.ValueRule, detection.ValueConfidence)
	fmt.Fprintf(stderr, "Rows:         %d kept, %d dropped\n", series.Len(), detection.DroppedRows)

	out, err := openOutput(cmd, opts.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	return normalize.WriteCSV(out, normalize.ToTable(series))
}
