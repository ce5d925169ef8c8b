package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Sections are separated by a
// double underscore, e.g. NETPURCHASE_GRAPH__URI.
const EnvPrefix = "NETPURCHASE_"

// Config aggregates application configuration values.
type Config struct {
	Input     InputConfig     `koanf:"input"`
	Detection DetectionConfig `koanf:"detection"`
	Logging   LoggingConfig   `koanf:"logging"`
	Ops       OpsConfig       `koanf:"ops"`
	Graph     GraphConfig     `koanf:"graph"`
}

// InputConfig locates the event logs and the flagged output.
type InputConfig struct {
	BatchPath  string `koanf:"batch" validate:"required"`
	StreamPath string `koanf:"stream" validate:"required"`
	OutputPath string `koanf:"output" validate:"required"`
}

// DetectionConfig tunes neighborhood expansion.
type DetectionConfig struct {
	Reach string `koanf:"reach" validate:"oneof=frontier cumulative"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format        string `koanf:"format" validate:"oneof=text json"`
	IncludeCaller bool   `koanf:"include_caller"`
}

// OpsConfig governs the health and metrics HTTP server.
type OpsConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GraphConfig describes the optional Neo4j export target.
type GraphConfig struct {
	URI             string `koanf:"uri"`
	Database        string `koanf:"database"`
	Username        string `koanf:"username"`
	Password        string `koanf:"password"`
	MaxConnections  int    `koanf:"max_connections" validate:"gte=0"`
	ExportWorkers   int    `koanf:"export_workers" validate:"gte=1"`
	ExportBatchSize int    `koanf:"export_batch_size" validate:"gte=1"`
}

// ExportEnabled reports whether a Neo4j target is configured.
func (g GraphConfig) ExportEnabled() bool { return g.URI != "" }

const (
	defaultOpsHost         = "127.0.0.1"
	defaultOpsPort         = 9464
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultGraphSessions   = 10
	defaultExportWorkers   = 4
	defaultExportBatchSize = 500
)

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Input: InputConfig{
			BatchPath:  "log_input/batch_log.json",
			StreamPath: "log_input/stream_log.json",
			OutputPath: "log_output/flagged_purchases.json",
		},
		Detection: DetectionConfig{Reach: "frontier"},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
		Ops: OpsConfig{
			Host:            defaultOpsHost,
			Port:            defaultOpsPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Graph: GraphConfig{
			MaxConnections:  defaultGraphSessions,
			ExportWorkers:   defaultExportWorkers,
			ExportBatchSize: defaultExportBatchSize,
		},
	}
}

var validate = validator.New()

// Load layers defaults, the optional YAML file at path and NETPURCHASE_*
// environment variables. An empty path skips the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKey maps NETPURCHASE_GRAPH__EXPORT_WORKERS to graph.export_workers.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
