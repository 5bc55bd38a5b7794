// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transports accepted by DispatchTransport.
const (
	TransportLocal = "local"
	TransportKafka = "kafka"
)

// Config holds configuration knobs for the HTTP server, the document store,
// the dispatch channel and the audit log. It is read once at start.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DBPath        string
	ProductsTable string
	EventsTable   string
	EventsTarget  string

	DispatchTransport    string
	KafkaBrokers         []string
	KafkaGroupID         string
	DispatchMaxAttempts  int
	DispatchRetryBackoff time.Duration

	EventRetention  time.Duration
	ExpirySweepSpec string

	InitialWorkerCount      int
	WorkerMin               int
	WorkerMax               int
	ScaleInterval           time.Duration
	ScaleUpBacklogPerWorker int
	ScaleDownIdleTicks      int
	QueueHighWatermark      int

	DeleteMissingAsNotFound bool

	LogLevel string
	LogFile  string
}

// fileConfig mirrors Config for the optional YAML file. Zero values mean
// "not set".
type fileConfig struct {
	HTTPAddr                string   `yaml:"http_addr"`
	ShutdownTimeoutSec      int      `yaml:"shutdown_timeout_sec"`
	DBPath                  string   `yaml:"db_path"`
	ProductsTable           string   `yaml:"products_table"`
	EventsTable             string   `yaml:"events_table"`
	EventsTarget            string   `yaml:"events_target"`
	DispatchTransport       string   `yaml:"dispatch_transport"`
	KafkaBrokers            []string `yaml:"kafka_brokers"`
	KafkaGroupID            string   `yaml:"kafka_group_id"`
	DispatchMaxAttempts     int      `yaml:"dispatch_max_attempts"`
	DispatchRetryBackoffMs  int      `yaml:"dispatch_retry_backoff_ms"`
	EventRetentionSec       int      `yaml:"event_retention_sec"`
	ExpirySweepSpec         string   `yaml:"expiry_sweep_spec"`
	WorkerCount             int      `yaml:"worker_count"`
	WorkerMin               int      `yaml:"worker_min"`
	WorkerMax               int      `yaml:"worker_max"`
	ScaleIntervalMs         int      `yaml:"scale_interval_ms"`
	ScaleUpBacklogPerWorker int      `yaml:"scale_up_backlog_per_worker"`
	ScaleDownIdleTicks      int      `yaml:"scale_down_idle_ticks"`
	QueueHighWatermark      int      `yaml:"queue_high_watermark"`
	DeleteMissingAsNotFound bool     `yaml:"delete_missing_as_not_found"`
	LogLevel                string   `yaml:"log_level"`
	LogFile                 string   `yaml:"log_file"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func listenv(key string, def []string) []string {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

// Load collects configuration from the CONFIG_FILE YAML (when set) and the
// environment with defaults.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile reads path (if non-empty) as YAML and applies environment
// overrides and defaults on top of it.
func LoadFile(path string) (Config, error) {
	var f fileConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &f); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	brokers := f.KafkaBrokers
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	minWorkers := atoienv("WORKER_MIN", orInt(f.WorkerMin, 1))
	maxWorkers := atoienv("WORKER_MAX", orInt(f.WorkerMax, 4))
	initialWorkers := atoienv("WORKER_COUNT", orInt(f.WorkerCount, minWorkers))
	return Config{
		HTTPAddr:                getenv("HTTP_ADDR", orString(f.HTTPAddr, ":8080")),
		ShutdownTimeout:         durenvs("SHUTDOWN_TIMEOUT", orInt(f.ShutdownTimeoutSec, 15)),
		DBPath:                  getenv("DB_PATH", orString(f.DBPath, "data/catalog.db")),
		ProductsTable:           getenv("PRODUCTS_TABLE", orString(f.ProductsTable, "products")),
		EventsTable:             getenv("EVENTS_TABLE", orString(f.EventsTable, "product_events")),
		EventsTarget:            getenv("EVENTS_TARGET", orString(f.EventsTarget, "product-events")),
		DispatchTransport:       strings.ToLower(getenv("DISPATCH_TRANSPORT", orString(f.DispatchTransport, TransportLocal))),
		KafkaBrokers:            listenv("KAFKA_BROKERS", brokers),
		KafkaGroupID:            getenv("KAFKA_GROUP_ID", orString(f.KafkaGroupID, "product-events-recorder")),
		DispatchMaxAttempts:     atoienv("DISPATCH_MAX_ATTEMPTS", orInt(f.DispatchMaxAttempts, 5)),
		DispatchRetryBackoff:    durenvms("DISPATCH_RETRY_BACKOFF_MS", orInt(f.DispatchRetryBackoffMs, 200)),
		EventRetention:          durenvs("EVENT_RETENTION_SEC", orInt(f.EventRetentionSec, 300)),
		ExpirySweepSpec:         getenv("EXPIRY_SWEEP_SPEC", orString(f.ExpirySweepSpec, "@every 1m")),
		InitialWorkerCount:      initialWorkers,
		WorkerMin:               minWorkers,
		WorkerMax:               maxWorkers,
		ScaleInterval:           durenvms("SCALE_INTERVAL_MS", orInt(f.ScaleIntervalMs, 500)),
		ScaleUpBacklogPerWorker: atoienv("SCALE_UP_BACKLOG_PER_WORKER", orInt(f.ScaleUpBacklogPerWorker, 100)),
		ScaleDownIdleTicks:      atoienv("SCALE_DOWN_IDLE_TICKS", orInt(f.ScaleDownIdleTicks, 6)),
		QueueHighWatermark:      atoienv("QUEUE_HIGH_WATERMARK", orInt(f.QueueHighWatermark, 5000)),
		DeleteMissingAsNotFound: boolenv("DELETE_MISSING_AS_NOT_FOUND", f.DeleteMissingAsNotFound),
		LogLevel:                getenv("LOG_LEVEL", orString(f.LogLevel, "info")),
		LogFile:                 getenv("LOG_FILE", f.LogFile),
	}, nil
}
