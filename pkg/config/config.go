package config

import "time"

// Store type constants
const (
	// StoreTypeMemory keeps documents in process memory
	StoreTypeMemory = "memory"
	// StoreTypeMongoDB represents MongoDB
	StoreTypeMongoDB = "mongodb"
	// StoreTypeDynamoDB represents AWS DynamoDB
	StoreTypeDynamoDB = "dynamodb"
	// StoreTypePostgres represents PostgreSQL JSONB tables
	StoreTypePostgres = "postgres"
)

// Config is the root configuration structure
type Config struct {
	Service       ServiceConfig
	Log           LogConfig
	Store         StoreConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the running service
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// StoreConfig selects and configures the document store.
// Container is the collection (MongoDB), table (DynamoDB, PostgreSQL) or
// namespace (memory) holding the documents.
type StoreConfig struct {
	Type              string         `mapstructure:"type"`
	Container         string         `mapstructure:"container"`
	PartitionKeyField string         `mapstructure:"partition_key_field"`
	IDField           string         `mapstructure:"id_field"`
	MaxItemCount      int            `mapstructure:"max_item_count"`
	OperationTimeout  time.Duration  `mapstructure:"operation_timeout"`
	EnsureSchema      bool           `mapstructure:"ensure_schema"`
	CircuitBreaker    BreakerConfig  `mapstructure:"circuit_breaker"`
	MongoDB           MongoDBConfig  `mapstructure:"mongodb"`
	DynamoDB          DynamoDBConfig `mapstructure:"dynamodb"`
	Postgres          PostgresConfig `mapstructure:"postgres"`
}

// BreakerConfig trips store calls after MaxFailures consecutive failures.
// MaxFailures 0 disables the breaker.
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// MongoDBConfig configures the MongoDB store
type MongoDBConfig struct {
	URL            string        `mapstructure:"url"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DynamoDBConfig configures the DynamoDB store
type DynamoDBConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// PostgresConfig configures the PostgreSQL store
type PostgresConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// ObservabilityConfig configures metrics and tracing
type ObservabilityConfig struct {
	// MetricsFile, when set, receives a Prometheus textfile snapshot on exit.
	MetricsFile       string  `mapstructure:"metrics_file"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "peoplectl",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Type:              StoreTypeMemory,
			Container:         "people",
			PartitionKeyField: "familyName",
			IDField:           "id",
			OperationTimeout:  5 * time.Second,
			CircuitBreaker: BreakerConfig{
				ResetTimeout: 30 * time.Second,
			},
			MongoDB: MongoDBConfig{
				ConnectTimeout: 10 * time.Second,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
			},
		},
		Observability: ObservabilityConfig{
			TracingEndpoint:   "localhost:4317",
			TracingSampleRate: 0.1,
		},
	}
}
