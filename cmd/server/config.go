package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/inferloop/tsforecast/internal/server"
)

const envPrefix = "TSFORECAST"

// envKeys are the settings that can be overridden from the environment,
// e.g. TSFORECAST_STORAGE_S3_BUCKET
var envKeys = []string{
	"host",
	"port",
	"sample_file",
	"default_engine",
	"max_upload_bytes",
	"storage.backend",
	"storage.file.base_path",
	"storage.s3.bucket",
	"storage.s3.region",
	"storage.s3.endpoint",
	"storage.s3.prefix",
	"storage.s3.access_key_id",
	"storage.s3.secret_access_key",
	"storage.redis.addr",
	"storage.redis.password",
	"storage.redis.ttl",
	"metrics.port",
}

// loadEnvFile loads a .env file into the process environment without
// overriding variables that are already set
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig layers defaults, the config file, the environment and
// explicit flags, in increasing precedence
func loadConfig(flags *Flags) (*server.Config, error) {
	config := server.DefaultConfig()
	config.Version = Version

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if flags.ConfigFile != "" {
		v.SetConfigFile(flags.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyFlags(config, flags)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyFlags(config *server.Config, flags *Flags) {
	if flags.IsSet("host") {
		config.Host = flags.Host
	}
	if flags.IsSet("port") {
		config.Port = flags.Port
	}
	if flags.IsSet("metrics-port") {
		config.Metrics.Port = flags.MetricsPort
	}
	if flags.IsSet("storage") {
		config.Storage.Backend = flags.StorageBackend
	}
	if flags.IsSet("upload-dir") {
		config.Storage.File.BasePath = flags.UploadDir
	}
	if flags.IsSet("sample-file") {
		config.SampleFile = flags.SampleFile
	}
	if flags.IsSet("engine") {
		config.DefaultEngine = flags.DefaultEngine
	}
	if flags.IsSet("tls-cert") {
		config.TLSCertFile = flags.TLSCert
	}
	if flags.IsSet("tls-key") {
		config.TLSKeyFile = flags.TLSKey
	}
}
