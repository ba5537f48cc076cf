package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment override when none is given.
const DefaultEnvPrefix = "DOCDB"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "DOCDB")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// Load loads configuration with precedence: ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v, err := l.newViper()
	if err != nil {
		return nil, err
	}
	return l.finish(v)
}

func (l *ViperLoader) newViper() (*viper.Viper, error) {
	v := viper.New()
	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			// Only an explicitly named file is required to exist.
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}
	return v, nil
}

func (l *ViperLoader) finish(v *viper.Viper) (*Config, error) {
	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	v.BindEnv("log.level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("log.format", l.prefixedEnv("LOG_FORMAT"))

	// Store
	v.BindEnv("store.type", l.prefixedEnv("STORE_TYPE"))
	v.BindEnv("store.container", l.prefixedEnv("STORE_CONTAINER"))
	v.BindEnv("store.partition_key_field", l.prefixedEnv("STORE_PARTITION_KEY_FIELD"))
	v.BindEnv("store.id_field", l.prefixedEnv("STORE_ID_FIELD"))
	v.BindEnv("store.max_item_count", l.prefixedEnv("STORE_MAX_ITEM_COUNT"))
	v.BindEnv("store.operation_timeout", l.prefixedEnv("STORE_OPERATION_TIMEOUT"))
	v.BindEnv("store.ensure_schema", l.prefixedEnv("STORE_ENSURE_SCHEMA"))
	v.BindEnv("store.circuit_breaker.max_failures", l.prefixedEnv("STORE_CIRCUIT_MAX_FAILURES"))
	v.BindEnv("store.circuit_breaker.reset_timeout", l.prefixedEnv("STORE_CIRCUIT_RESET_TIMEOUT"))

	v.BindEnv("store.mongodb.url", l.prefixedEnv("MONGODB_URL"))
	v.BindEnv("store.mongodb.database", l.prefixedEnv("MONGODB_DATABASE"))
	v.BindEnv("store.mongodb.connect_timeout", l.prefixedEnv("MONGODB_CONNECT_TIMEOUT"))

	// The standard AWS variables work too; the AWS SDK reads them itself.
	v.BindEnv("store.dynamodb.region", l.prefixedEnv("DYNAMODB_REGION"))
	v.BindEnv("store.dynamodb.endpoint", l.prefixedEnv("DYNAMODB_ENDPOINT"))
	v.BindEnv("store.dynamodb.access_key_id", l.prefixedEnv("DYNAMODB_ACCESS_KEY_ID"))
	v.BindEnv("store.dynamodb.secret_access_key", l.prefixedEnv("DYNAMODB_SECRET_ACCESS_KEY"))
	v.BindEnv("store.dynamodb.session_token", l.prefixedEnv("DYNAMODB_SESSION_TOKEN"))

	v.BindEnv("store.postgres.url", l.prefixedEnv("POSTGRES_URL"))
	v.BindEnv("store.postgres.max_open_conns", l.prefixedEnv("POSTGRES_MAX_OPEN_CONNS"))
	v.BindEnv("store.postgres.max_idle_conns", l.prefixedEnv("POSTGRES_MAX_IDLE_CONNS"))
	v.BindEnv("store.postgres.conn_max_lifetime", l.prefixedEnv("POSTGRES_CONN_MAX_LIFETIME"))
	v.BindEnv("store.postgres.conn_max_idle_time", l.prefixedEnv("POSTGRES_CONN_MAX_IDLE_TIME"))

	// Observability
	v.BindEnv("observability.metrics_file", l.prefixedEnv("METRICS_FILE"))
	v.BindEnv("observability.tracing_enabled", l.prefixedEnv("TRACING_ENABLED"))
	v.BindEnv("observability.tracing_endpoint", l.prefixedEnv("TRACING_ENDPOINT"))
	v.BindEnv("observability.tracing_sample_rate", l.prefixedEnv("TRACING_SAMPLE_RATE"))
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("store.type", cfg.Store.Type)
	v.SetDefault("store.container", cfg.Store.Container)
	v.SetDefault("store.partition_key_field", cfg.Store.PartitionKeyField)
	v.SetDefault("store.id_field", cfg.Store.IDField)
	v.SetDefault("store.max_item_count", cfg.Store.MaxItemCount)
	v.SetDefault("store.operation_timeout", cfg.Store.OperationTimeout)
	v.SetDefault("store.ensure_schema", cfg.Store.EnsureSchema)
	v.SetDefault("store.circuit_breaker.max_failures", cfg.Store.CircuitBreaker.MaxFailures)
	v.SetDefault("store.circuit_breaker.reset_timeout", cfg.Store.CircuitBreaker.ResetTimeout)
	v.SetDefault("store.mongodb.url", cfg.Store.MongoDB.URL)
	v.SetDefault("store.mongodb.database", cfg.Store.MongoDB.Database)
	v.SetDefault("store.mongodb.connect_timeout", cfg.Store.MongoDB.ConnectTimeout)
	v.SetDefault("store.dynamodb.region", cfg.Store.DynamoDB.Region)
	v.SetDefault("store.dynamodb.endpoint", cfg.Store.DynamoDB.Endpoint)
	v.SetDefault("store.postgres.url", cfg.Store.Postgres.URL)
	v.SetDefault("store.postgres.max_open_conns", cfg.Store.Postgres.MaxOpenConns)
	v.SetDefault("store.postgres.max_idle_conns", cfg.Store.Postgres.MaxIdleConns)
	v.SetDefault("store.postgres.conn_max_lifetime", cfg.Store.Postgres.ConnMaxLifetime)
	v.SetDefault("store.postgres.conn_max_idle_time", cfg.Store.Postgres.ConnMaxIdleTime)

	v.SetDefault("observability.metrics_file", cfg.Observability.MetricsFile)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
}

// Validate validates the configuration and returns every problem found
func (l *ViperLoader) Validate(cfg *Config) error {
	return cfg.Validate()
}
