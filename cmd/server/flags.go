package main

import (
	"flag"
	"fmt"
	"io"
)

// Flags are the command line options of the server
type Flags struct {
	Port           int
	Host           string
	ConfigFile     string
	EnvFile        string
	LogLevel       string
	LogFormat      string
	MetricsPort    int
	StorageBackend string
	UploadDir      string
	SampleFile     string
	DefaultEngine  string
	TLSCert        string
	TLSKey         string
	Version        bool

	// set records which flags were given explicitly
	set map[string]bool
}

// ParseFlags parses args, excluding the program name
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	flags := &Flags{set: make(map[string]bool)}

	fs := flag.NewFlagSet("tsforecast-server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.IntVar(&flags.Port, "port", 8000, "Server port")
	fs.StringVar(&flags.Host, "host", "0.0.0.0", "Server host")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to configuration file")
	fs.StringVar(&flags.EnvFile, "env-file", ".env", "Path to a .env file, ignored when missing")
	fs.StringVar(&flags.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&flags.LogFormat, "log-format", "json", "Log format (json, text)")
	fs.IntVar(&flags.MetricsPort, "metrics-port", 0, "Standalone Prometheus port, 0 serves /metrics on the API port")
	fs.StringVar(&flags.StorageBackend, "storage", "file", "Upload storage backend (file, s3, redis)")
	fs.StringVar(&flags.UploadDir, "upload-dir", "./data", "Directory of the file upload backend")
	fs.StringVar(&flags.SampleFile, "sample-file", "data/sample_data.txt", "CSV served by the legacy GET /forecast route")
	fs.StringVar(&flags.DefaultEngine, "engine", "decomposition", "Default forecast engine (decomposition, linear)")
	fs.StringVar(&flags.TLSCert, "tls-cert", "", "Path to TLS certificate")
	fs.StringVar(&flags.TLSKey, "tls-key", "", "Path to TLS key")
	fs.BoolVar(&flags.Version, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: tsforecast-server [options]\n")
		fmt.Fprintf(output, "\nForecasting and anomaly detection API server\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) { flags.set[f.Name] = true })

	return flags, nil
}

// IsSet reports whether the named flag was given on the command line
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}
