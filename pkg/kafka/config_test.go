package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProducerConfig_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "broker:9092")

	cfg, err := LoadProducerConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled())
	assert.Equal(t, DefaultTopic, cfg.Topic)
	assert.Equal(t, DefaultFlushTimeout, cfg.FlushTimeout)
	assert.Equal(t, TopicConfig{Name: DefaultTopic, NumPartitions: 1, ReplicationFactor: 1}, cfg.TopicConfig())
	require.NoError(t, cfg.Validate())
}

func TestLoadProducerConfig_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "a:9092,b:9092")
	t.Setenv("KAFKA_TOPIC", "status")
	t.Setenv("KAFKA_TOPIC_PARTITIONS", "3")
	t.Setenv("KAFKA_FLUSH_TIMEOUT", "2s")
	t.Setenv("KAFKA_ENABLE_LOGS", "true")

	cfg, err := LoadProducerConfig()
	require.NoError(t, err)
	assert.Equal(t, "status", cfg.Topic)
	assert.Equal(t, 3, cfg.Partitions)
	assert.Equal(t, 2*time.Second, cfg.FlushTimeout)

	m := cfg.ConfigMap()
	servers, err := m.Get("bootstrap.servers", "")
	require.NoError(t, err)
	assert.Equal(t, "a:9092,b:9092", servers)
	logs, err := m.Get("go.logs.channel.enable", false)
	require.NoError(t, err)
	assert.Equal(t, true, logs)
}

func TestProducerConfig_Validate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ProducerConfig{}.Validate(), ErrMissingBootstrapServers)

	cfg := ProducerConfig{BootstrapServers: "broker:9092", Topic: "status", Partitions: 0, ReplicationFactor: 1}
	require.ErrorContains(t, cfg.Validate(), "number of partitions")
}

func TestTopicConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     TopicConfig
		wantErr string
	}{
		{name: "valid", cfg: TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}},
		{name: "empty name", cfg: TopicConfig{NumPartitions: 1, ReplicationFactor: 1}, wantErr: "topic name"},
		{name: "no partitions", cfg: TopicConfig{Name: "t", ReplicationFactor: 1}, wantErr: "partitions"},
		{name: "no replicas", cfg: TopicConfig{Name: "t", NumPartitions: 1}, wantErr: "replication factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
