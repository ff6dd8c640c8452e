package clickhouse

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ClickhouseConfig configures the status history connection. Hosts being
// empty disables the history sink.
type ClickhouseConfig struct {
	Hosts              []string `env:"CLICKHOUSE_HOSTS" envSeparator:","`
	Database           string   `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	Username           string   `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	Password           string   `env:"CLICKHOUSE_PASSWORD" envDefault:""`
	Cluster            string   `env:"CLICKHOUSE_CLUSTER" envDefault:""`
	Table              string   `env:"CLICKHOUSE_STATUS_TABLE" envDefault:"checkpoint_status_history"`
	Debug              bool     `env:"CLICKHOUSE_DEBUG" envDefault:"false"`
	InsecureSkipVerify bool     `env:"CLICKHOUSE_INSECURE_SKIP_VERIFY" envDefault:"true"`
	MaxExecutionTime   int      `env:"CLICKHOUSE_MAX_EXECUTION_TIME" envDefault:"60"` // seconds
	DialTimeout        int      `env:"CLICKHOUSE_DIAL_TIMEOUT" envDefault:"30"`       // seconds
	MaxOpenConns       int      `env:"CLICKHOUSE_MAX_OPEN_CONNS" envDefault:"5"`
	MaxIdleConns       int      `env:"CLICKHOUSE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime    int      `env:"CLICKHOUSE_CONN_MAX_LIFETIME" envDefault:"10"` // minutes
	ClientName         string   `env:"CLICKHOUSE_CLIENT_NAME" envDefault:"checkpoint-viewer"`
	ClientVersion      string   `env:"CLICKHOUSE_CLIENT_VERSION" envDefault:"1.0"`
}

// Load reads the configuration from the environment.
func Load() (ClickhouseConfig, error) {
	var cfg ClickhouseConfig
	if err := env.Parse(&cfg); err != nil {
		return ClickhouseConfig{}, fmt.Errorf("failed to parse clickhouse config: %w", err)
	}
	return cfg, nil
}

func (c ClickhouseConfig) Enabled() bool {
	return len(c.Hosts) > 0
}
