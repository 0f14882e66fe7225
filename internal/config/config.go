package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default batch size: bounds memory per extract cycle regardless of source
// file size.
const defaultBatchSize = 5000

// maxDefaultWorkers caps the default worker count; the scan is I/O bound and
// more workers than this just thrash the page cache.
const maxDefaultWorkers = 8

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputDir  string
	OutputDir string

	LogLevel  string
	LogFormat string

	// HTTPAddr serves healthz/readyz/metrics while a scan runs. Empty
	// disables the server; batch invocations rarely need it.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	BatchSize int
	Workers   int

	// Kafka sink configuration. Publishing is enabled only when a sink
	// topic is configured.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := parsePositiveInt("BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("WORKERS", defaultWorkers())
	if err != nil {
		return nil, err
	}

	sinkTopic := os.Getenv("KAFKA_SINK_TOPIC")

	cfg := &Config{
		InputDir:        sharedcfg.EnvOrDefault("OCCURRENCE_DIR", "data/occurrence"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "web/data"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,
		BatchSize:       batchSize,
		Workers:         workers,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sinkTopic,
		KafkaEnabled:    sinkTopic != "",
	}

	if cfg.InputDir == "" {
		return nil, errors.New("OCCURRENCE_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_SINK_TOPIC is set but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > maxDefaultWorkers {
		return maxDefaultWorkers
	}
	return n
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
