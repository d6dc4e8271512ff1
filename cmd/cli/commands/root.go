package commands

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/cmd/cli/config"
)

// Version is reported by --version
var Version = "0.1.0"

// GlobalOptions are the persistent flags shared by every command
type GlobalOptions struct {
	ConfigFile string
	Verbose    bool
}

// NewRootCmd builds the tsforecast-cli command tree
func NewRootCmd() *cobra.Command {
	globals := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "tsforecast-cli",
		Short: "Time series forecasting and anomaly detection CLI",
		Long: `A command-line interface for forecasting a time series from a CSV file
or a time series database, flagging anomalies and summarizing the outlook.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&globals.ConfigFile, "config", "", "config file (default is "+config.ConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewForecastCmd(globals))
	rootCmd.AddCommand(NewNormalizeCmd(globals))

	return rootCmd
}

// newLogger logs to stderr so command output stays machine readable
func newLogger(level string, verbose bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.WarnLevel
	}
	if verbose {
		logLevel = logrus.DebugLevel
	}
	logger.SetLevel(logLevel)

	return logger
}

// openInput opens path, "-" reads stdin
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

// openOutput creates path, "-" writes to the command output
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
