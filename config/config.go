package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/sieve/api"
	"github.com/thisisjab/sieve/engine"
	"github.com/thisisjab/sieve/fieldmap"
	"github.com/thisisjab/sieve/processor"
	"github.com/thisisjab/sieve/querier"
	"github.com/thisisjab/sieve/storage"
	"gopkg.in/yaml.v3"
)

const defaultProcessorWorkersCount = 4

type Config struct {
	Logger                LoggerConfig      `yaml:"logger"`
	API                   api.Config        `yaml:"api"`
	Storage               StorageConfig     `yaml:"storage"`
	Fields                FieldsConfig      `yaml:"fields"`
	Processors            []ProcessorConfig `yaml:"processors"`
	ProcessorWorkersCount uint              `yaml:"processor_workers_count"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Type   string `yaml:"type"`
	Output string `yaml:"output"`
}

type StorageConfig struct {
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

// FieldsConfig points at the YAML field map. With Watch set the file is
// reloaded whenever it changes.
type FieldsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type ProcessorConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

// Storage is a querier backed by a database connection.
type Storage interface {
	querier.Querier
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}

// Components are the parts a server is assembled from.
type Components struct {
	Engine  engine.Config
	Storage Storage
	// Watcher is set when the field map is watched. It must be run for
	// reloads to happen.
	Watcher *fieldmap.Watcher
}

// Load reads and decodes the YAML config file at path.
func Load(path string) (Config, error) {
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file content: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(fileContent, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file: %w", err)
	}

	if cfg.ProcessorWorkersCount == 0 {
		cfg.ProcessorWorkersCount = defaultProcessorWorkersCount
	}

	return cfg, nil
}

// Parse builds the logger and every configured component. The logger is
// returned whenever it could be built, even if a later step fails.
func (cfg Config) Parse() (*Components, *slog.Logger, error) {
	logger, err := parseLoggerConfig(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create logger: %w", err)
	}

	fields, watcher, err := parseFieldsConfig(logger, cfg.Fields)
	if err != nil {
		return nil, logger, fmt.Errorf("cannot load field map: %w", err)
	}

	st, err := parseStorageConfig(cfg.Storage, fields)
	if err != nil {
		return nil, logger, fmt.Errorf("cannot create storage: %w", err)
	}

	processors := make([]engine.RecordProcessor, len(cfg.Processors))
	for i, pc := range cfg.Processors {
		p, err := parseProcessorConfig(pc)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create processor `%s`: %w", pc.Name, err)
		}
		processors[i] = p
	}

	return &Components{
		Engine: engine.Config{
			Querier:               st,
			Processors:            processors,
			ProcessorWorkersCount: cfg.ProcessorWorkersCount,
		},
		Storage: st,
		Watcher: watcher,
	}, logger, nil
}

func parseLoggerConfig(cfg LoggerConfig) (*slog.Logger, error) {
	var logger *slog.Logger
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var w io.Writer
	switch cfg.Output {
	case "stdout", "":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	switch cfg.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text", "":
		handler = tint.NewHandler(w, &tint.Options{Level: level, AddSource: true})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	logger = slog.New(handler)

	return logger, nil
}

func parseFieldsConfig(logger *slog.Logger, cfg FieldsConfig) (fieldmap.Provider, *fieldmap.Watcher, error) {
	if cfg.Path == "" {
		if cfg.Watch {
			return nil, nil, errors.New("watch requires a field map path")
		}
		return fieldmap.Map{}, nil, nil
	}

	if cfg.Watch {
		w, err := fieldmap.NewWatcher(logger, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return w, w, nil
	}

	m, err := fieldmap.Load(cfg.Path)
	if err != nil {
		return nil, nil, err
	}

	return m, nil, nil
}

func parseStorageConfig(cfg StorageConfig, fields fieldmap.Provider) (Storage, error) {
	switch cfg.Type {
	case "clickhouse":
		var clickHouseConfig storage.ClickHouseStorageConfig

		if err := remarshal(cfg.Config, &clickHouseConfig); err != nil {
			return nil, fmt.Errorf("cannot parse clickhouse storage config: %w", err)
		}

		s, err := storage.NewClickHouseStorage(clickHouseConfig, fields)
		if err != nil {
			return nil, fmt.Errorf("cannot create clickhouse storage: %w", err)
		}

		return s, nil

	case "postgres", "sqlite3", "duckdb":
		var sqlConfig storage.SQLStorageConfig

		if err := remarshal(cfg.Config, &sqlConfig); err != nil {
			return nil, fmt.Errorf("cannot parse %s storage config: %w", cfg.Type, err)
		}

		sqlConfig.Driver = cfg.Type

		s, err := storage.NewSQLStorage(sqlConfig, fields)
		if err != nil {
			return nil, fmt.Errorf("cannot create %s storage: %w", cfg.Type, err)
		}

		return s, nil

	default:
		return nil, fmt.Errorf("invalid storage type: %s", cfg.Type)
	}
}

func parseProcessorConfig(cfg ProcessorConfig) (engine.RecordProcessor, error) {
	switch cfg.Type {
	case "json":
		var jsonConfig processor.JsonRecordProcessorConfig
		err := remarshal(cfg.Config, &jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json processor: %w", err)
		}

		jsonConfig.Name = cfg.Name

		p, err := processor.NewJsonRecordProcessor(jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json processor: %w", err)
		}

		return p, nil
	case "lua":
		var luaConfig processor.LuaRecordProcessorConfig
		err := remarshal(cfg.Config, &luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua processor: %w", err)
		}

		luaConfig.Name = cfg.Name

		p, err := processor.NewLuaRecordProcessor(luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua processor: %w", err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf("invalid record processor type: %s", cfg.Type)
	}
}

// remarshal converts a generic YAML value (like map[string]any) into a
// concrete struct. The output parameter must be a pointer to the target type.
func remarshal(input any, output any) error {
	yamlBytes, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	if err := yaml.Unmarshal(yamlBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}

	return nil
}
