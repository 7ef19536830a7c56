package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Service holds settings for the query/admin HTTP surface.
type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
}

// Cassandra holds backend connection settings. Consistency levels are a
// caller decision, so they live here rather than in code.
type Cassandra struct {
	Hosts             []string `envconfig:"CASSANDRA_HOSTS" required:"true"`
	Port              int      `envconfig:"CASSANDRA_PORT" default:"9042"`
	Keyspace          string   `envconfig:"CASSANDRA_KEYSPACE" default:"rowlog"`
	User              string   `envconfig:"CASSANDRA_USER" default:""`
	Password          string   `envconfig:"CASSANDRA_PASSWORD" default:""`
	ReadConsistency   string   `envconfig:"CASSANDRA_READ_CONSISTENCY" default:"QUORUM"`
	WriteConsistency  string   `envconfig:"CASSANDRA_WRITE_CONSISTENCY" default:"QUORUM"`
	TimeoutMs         int      `envconfig:"CASSANDRA_TIMEOUT_MS" default:"10000"`
	ConnectTimeoutMs  int      `envconfig:"CASSANDRA_CONNECT_TIMEOUT_MS" default:"5000"`
	ReplicationFactor int      `envconfig:"CASSANDRA_REPLICATION_FACTOR" default:"1"`
	PageSize          int      `envconfig:"CASSANDRA_PAGE_SIZE" default:"500"`
}

// Journal holds event-log settings. PartitionSize is immutable for the
// lifetime of a keyspace; changing it requires a data migration.
type Journal struct {
	PartitionSize int64 `envconfig:"JOURNAL_PARTITION_SIZE" default:"500000"`
}

// Snapshot holds snapshot-store settings. MaxLoadAttempts bounds the
// deserialization fallback chain during recovery.
type Snapshot struct {
	MaxLoadAttempts int `envconfig:"SNAPSHOT_MAX_LOAD_ATTEMPTS" default:"3"`
}

// Reaper holds settings for the background physical purge loop.
type Reaper struct {
	IntervalSec int `envconfig:"REAPER_INTERVAL_SEC" default:"3600"`
}

type Config struct {
	Service   Service
	Cassandra Cassandra
	Journal   Journal
	Snapshot  Snapshot
	Reaper    Reaper
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
