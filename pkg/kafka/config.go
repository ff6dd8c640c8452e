package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	DefaultFlushTimeout = 15 * time.Second
	DefaultTopic        = "checkpoint-status"
)

var ErrMissingBootstrapServers = errors.New("kafka bootstrap servers are required")

// ProducerConfig configures the status feed producer.
type ProducerConfig struct {
	BootstrapServers  string        `env:"KAFKA_BOOTSTRAP_SERVERS"`
	Topic             string        `env:"KAFKA_TOPIC"              envDefault:"checkpoint-status"`
	ClientID          string        `env:"KAFKA_CLIENT_ID"          envDefault:"checkpoint-viewer"`
	Partitions        int           `env:"KAFKA_TOPIC_PARTITIONS"   envDefault:"1"`
	ReplicationFactor int           `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	FlushTimeout      time.Duration `env:"KAFKA_FLUSH_TIMEOUT"      envDefault:"15s"`
	EnableLogs        bool          `env:"KAFKA_ENABLE_LOGS"        envDefault:"false"` // librdkafka client logs
}

// LoadProducerConfig reads the producer configuration from the environment.
func LoadProducerConfig() (ProducerConfig, error) {
	var cfg ProducerConfig
	if err := env.Parse(&cfg); err != nil {
		return ProducerConfig{}, fmt.Errorf("failed to parse kafka config: %w", err)
	}
	return cfg, nil
}

// Enabled reports whether a broker was configured.
func (c ProducerConfig) Enabled() bool {
	return c.BootstrapServers != ""
}

func (c ProducerConfig) Validate() error {
	if !c.Enabled() {
		return ErrMissingBootstrapServers
	}
	return c.TopicConfig().Validate()
}

// TopicConfig is the topic the feed publishes to.
func (c ProducerConfig) TopicConfig() TopicConfig {
	return TopicConfig{
		Name:              c.Topic,
		NumPartitions:     c.Partitions,
		ReplicationFactor: c.ReplicationFactor,
	}
}

// ConfigMap builds the librdkafka settings. Delivery is acknowledged by all
// in-sync replicas and retried idempotently.
func (c ProducerConfig) ConfigMap() *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":      c.BootstrapServers,
		"client.id":              c.ClientID,
		"acks":                   "all",
		"enable.idempotence":     true,
		"go.logs.channel.enable": c.EnableLogs,
	}
}
