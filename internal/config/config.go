// Package config loads per-process configuration from the environment,
// using the same caarlos0/env + godotenv pattern across every cmd entrypoint.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// IndexerConfig configures cmd/indexer: the live ingestion + rollover path.
type IndexerConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"spans"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"indexer"`

	CoordinationEndpoints []string      `env:"COORDINATION_ENDPOINTS" envSeparator:"," envDefault:"localhost:2379"`
	CoordinationTimeout   time.Duration `env:"COORDINATION_TIMEOUT" envDefault:"5s"`

	ObjectStoreRoot string `env:"OBJECT_STORE_ROOT" envDefault:"./data/objectstore"`
	LocalChunkRoot  string `env:"LOCAL_CHUNK_ROOT" envDefault:"./data/chunks"`

	MaxBytesPerChunk    int64         `env:"MAX_BYTES_PER_CHUNK" envDefault:"1073741824"`
	MaxMessagesPerChunk int64         `env:"MAX_MESSAGES_PER_CHUNK" envDefault:"10000000"`
	MaxChunkLiveness    time.Duration `env:"MAX_CHUNK_LIVENESS" envDefault:"2h"`
	RolloverWorkers     int           `env:"ROLLOVER_WORKERS" envDefault:"2"`

	DefaultBucketRateBytesPerSec int64 `env:"DEFAULT_BUCKET_RATE_BYTES_PER_SEC" envDefault:"10485760"`
	DefaultBucketBurstSeconds    int   `env:"DEFAULT_BUCKET_BURST_SECONDS" envDefault:"5"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

// RecoveryConfig configures cmd/recovery: the bounded re-indexing path with
// no live ingestion and no rate limiting.
type RecoveryConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	CoordinationEndpoints []string      `env:"COORDINATION_ENDPOINTS" envSeparator:"," envDefault:"localhost:2379"`
	CoordinationTimeout   time.Duration `env:"COORDINATION_TIMEOUT" envDefault:"5s"`

	ObjectStoreRoot string `env:"OBJECT_STORE_ROOT" envDefault:"./data/objectstore"`
	LocalChunkRoot  string `env:"LOCAL_CHUNK_ROOT" envDefault:"./data/recovery-chunks"`

	MaxBytesPerChunk    int64 `env:"MAX_BYTES_PER_CHUNK" envDefault:"1073741824"`
	MaxMessagesPerChunk int64 `env:"MAX_MESSAGES_PER_CHUNK" envDefault:"10000000"`
	RolloverWorkers     int   `env:"ROLLOVER_WORKERS" envDefault:"1"`

	RecoveryTaskPath string `env:"RECOVERY_TASK_PATH" envDefault:""`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9091"`
}

// ManagerConfig configures cmd/manager: the reconciliation and admin path.
type ManagerConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	CoordinationEndpoints []string      `env:"COORDINATION_ENDPOINTS" envSeparator:"," envDefault:"localhost:2379"`
	CoordinationTimeout   time.Duration `env:"COORDINATION_TIMEOUT" envDefault:"5s"`

	ObjectStoreRoot string `env:"OBJECT_STORE_ROOT" envDefault:"./data/objectstore"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9092"`
}

// LoadIndexer reads IndexerConfig from the environment, loading a local
// .env file first on a best-effort basis.
func LoadIndexer() (*IndexerConfig, error) {
	_ = godotenv.Load()
	cfg := &IndexerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRecovery reads RecoveryConfig from the environment.
func LoadRecovery() (*RecoveryConfig, error) {
	_ = godotenv.Load()
	cfg := &RecoveryConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadManager reads ManagerConfig from the environment.
func LoadManager() (*ManagerConfig, error) {
	_ = godotenv.Load()
	cfg := &ManagerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
