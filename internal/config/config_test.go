package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_FILE", "HTTP_ADDR", "SHUTDOWN_TIMEOUT", "DB_PATH", "PRODUCTS_TABLE", "EVENTS_TABLE",
	"EVENTS_TARGET", "DISPATCH_TRANSPORT", "KAFKA_BROKERS", "KAFKA_GROUP_ID", "DISPATCH_MAX_ATTEMPTS",
	"DISPATCH_RETRY_BACKOFF_MS", "EVENT_RETENTION_SEC", "EXPIRY_SWEEP_SPEC", "WORKER_MIN", "WORKER_MAX",
	"WORKER_COUNT", "SCALE_INTERVAL_MS", "SCALE_UP_BACKLOG_PER_WORKER", "SCALE_DOWN_IDLE_TICKS",
	"QUEUE_HIGH_WATERMARK", "DELETE_MISSING_AS_NOT_FOUND", "LOG_LEVEL", "LOG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.ProductsTable != "products" || c.EventsTable != "product_events" || c.EventsTarget != "product-events" {
		t.Fatalf("table defaults: %+v", c)
	}
	if c.DispatchTransport != TransportLocal {
		t.Fatalf("transport default")
	}
	if len(c.KafkaBrokers) != 1 || c.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("brokers default")
	}
	if c.EventRetention != 5*time.Minute || c.ExpirySweepSpec != "@every 1m" {
		t.Fatalf("retention defaults")
	}
	if c.DispatchMaxAttempts != 5 || c.DispatchRetryBackoff != 200*time.Millisecond {
		t.Fatalf("retry defaults")
	}
	if c.WorkerMin != 1 || c.WorkerMax != 4 || c.InitialWorkerCount != 1 {
		t.Fatalf("worker bounds default")
	}
	if c.ScaleInterval != 500*time.Millisecond {
		t.Fatalf("ScaleInterval default")
	}
	if c.ScaleUpBacklogPerWorker != 100 || c.ScaleDownIdleTicks != 6 {
		t.Fatalf("scale thresholds default")
	}
	if c.QueueHighWatermark != 5000 {
		t.Fatalf("high watermark default")
	}
	if c.DeleteMissingAsNotFound {
		t.Fatalf("delete asymmetry should be preserved by default")
	}
	if c.LogLevel != "info" || c.LogFile != "" {
		t.Fatalf("log defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("PRODUCTS_TABLE", "catalog")
	t.Setenv("EVENTS_TABLE", "audit")
	t.Setenv("EVENTS_TARGET", "audit-topic")
	t.Setenv("DISPATCH_TRANSPORT", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EVENT_RETENTION_SEC", "60")
	t.Setenv("WORKER_MIN", "2")
	t.Setenv("WORKER_MAX", "3")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("SCALE_INTERVAL_MS", "250")
	t.Setenv("DELETE_MISSING_AS_NOT_FOUND", "true")
	t.Setenv("QUEUE_HIGH_WATERMARK", "99")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if c.ShutdownTimeout != 2*time.Second {
		t.Fatalf("ShutdownTimeout env")
	}
	if c.ProductsTable != "catalog" || c.EventsTable != "audit" || c.EventsTarget != "audit-topic" {
		t.Fatalf("tables env")
	}
	if c.DispatchTransport != TransportKafka {
		t.Fatalf("transport env")
	}
	if len(c.KafkaBrokers) != 2 || c.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers env: %v", c.KafkaBrokers)
	}
	if c.EventRetention != time.Minute {
		t.Fatalf("retention env")
	}
	if c.WorkerMin != 2 || c.WorkerMax != 3 || c.InitialWorkerCount != 2 {
		t.Fatalf("workers env")
	}
	if c.ScaleInterval != 250*time.Millisecond {
		t.Fatalf("ScaleInterval env")
	}
	if !c.DeleteMissingAsNotFound {
		t.Fatalf("delete flag env")
	}
	if c.QueueHighWatermark != 99 {
		t.Fatalf("high watermark env")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
http_addr: ":7070"
products_table: file_products
events_table: file_events
kafka_brokers: ["b1:9092"]
event_retention_sec: 120
log_level: debug
`)
	t.Setenv("EVENTS_TABLE", "env_events")
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if c.HTTPAddr != ":7070" || c.ProductsTable != "file_products" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.EventsTable != "env_events" {
		t.Fatalf("env should override file, got %s", c.EventsTable)
	}
	if len(c.KafkaBrokers) != 1 || c.KafkaBrokers[0] != "b1:9092" {
		t.Fatalf("brokers from file: %v", c.KafkaBrokers)
	}
	if c.EventRetention != 2*time.Minute || c.LogLevel != "debug" {
		t.Fatalf("file retention/log level: %+v", c)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadFile(writeFile(t, "http_addr: [")); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to report a missing CONFIG_FILE")
	}
}

func TestWatchReportsChanges(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "log_level: info\n")
	changed := make(chan Config, 4)
	stop, err := Watch(path, func(c Config) { changed <- c }, nil)
	if err != nil {
		t.Skipf("file watching unavailable: %v", err)
	}
	defer stop()
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.LogLevel == "debug" {
				return
			}
		case <-deadline:
			t.Fatalf("no reload observed")
		}
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeFile(t, "products_table: from_file\n"))
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ProductsTable != "from_file" {
		t.Fatalf("CONFIG_FILE not applied: %s", c.ProductsTable)
	}
}
