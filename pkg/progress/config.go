package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the configuration for the progress publisher.
// Publishing is disabled when no bootstrap servers are configured.
type Config struct {
	BootstrapServers  string        `env:"KAFKA_BOOTSTRAP_SERVERS"`                                // Kafka broker addresses; empty disables publishing
	Topic             string        `env:"PROGRESS_TOPIC"              envDefault:"slot-progress"` // Topic receiving progress events
	NumPartitions     int           `env:"PROGRESS_TOPIC_PARTITIONS"   envDefault:"1"`             // Partition count for topic creation
	ReplicationFactor int           `env:"PROGRESS_TOPIC_REPLICATION"  envDefault:"1"`             // Replication factor for topic creation
	FlushTimeout      time.Duration `env:"PROGRESS_FLUSH_TIMEOUT"      envDefault:"10s"`           // Timeout for flushing pending events on Close
	EnableLogs        bool          `env:"PROGRESS_ENABLE_KAFKA_LOGS"  envDefault:"false"`         // Enable librdkafka client logs
}

// Enabled reports whether progress publishing is configured.
func (c Config) Enabled() bool {
	return c.BootstrapServers != ""
}

// LoadConfig loads the publisher configuration from environment variables.
func LoadConfig() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse progress config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
