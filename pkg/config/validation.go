package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("invalid log.level: %s (must be one of: %v)", c.Log.Level, validLogLevels))
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("invalid log.format: %s (must be one of: %v)", c.Log.Format, validLogFormats))
	}

	errs = append(errs, c.Store.validate()...)

	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid observability.tracing_sample_rate: %v (must be between 0 and 1)", c.Observability.TracingSampleRate))
	}

	return errors.Join(errs...)
}

func (s StoreConfig) validate() []error {
	var errs []error

	validTypes := []string{StoreTypeMemory, StoreTypeMongoDB, StoreTypeDynamoDB, StoreTypePostgres}
	if !contains(validTypes, s.Type) {
		errs = append(errs, fmt.Errorf("invalid store.type: %s (must be one of: %v)", s.Type, validTypes))
	}
	if strings.TrimSpace(s.Container) == "" {
		errs = append(errs, errors.New("store.container is required"))
	}
	if strings.TrimSpace(s.PartitionKeyField) == "" {
		errs = append(errs, errors.New("store.partition_key_field is required"))
	}
	if s.MaxItemCount < 0 {
		errs = append(errs, errors.New("store.max_item_count cannot be negative"))
	}
	if s.OperationTimeout < 0 {
		errs = append(errs, errors.New("store.operation_timeout cannot be negative"))
	}
	if s.CircuitBreaker.MaxFailures < 0 {
		errs = append(errs, errors.New("store.circuit_breaker.max_failures cannot be negative"))
	}
	if s.CircuitBreaker.MaxFailures > 0 && s.CircuitBreaker.ResetTimeout <= 0 {
		errs = append(errs, errors.New("store.circuit_breaker.reset_timeout must be positive when the breaker is enabled"))
	}

	switch s.Type {
	case StoreTypeMongoDB:
		if s.MongoDB.URL == "" {
			errs = append(errs, errors.New("store.mongodb.url is required for MongoDB"))
		}
		if s.MongoDB.Database == "" {
			errs = append(errs, errors.New("store.mongodb.database is required for MongoDB"))
		}
	case StoreTypeDynamoDB:
		if s.DynamoDB.Region == "" {
			errs = append(errs, errors.New("store.dynamodb.region is required for DynamoDB"))
		}
	case StoreTypePostgres:
		if s.Postgres.URL == "" {
			errs = append(errs, errors.New("store.postgres.url is required for PostgreSQL"))
		}
		if s.Postgres.MaxIdleConns > s.Postgres.MaxOpenConns && s.Postgres.MaxOpenConns > 0 {
			errs = append(errs, errors.New("store.postgres.max_idle_conns cannot exceed max_open_conns"))
		}
	}
	return errs
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// String returns the full configuration as a formatted string
func (c *Config) String() string {
	return formatStruct(reflect.ValueOf(c).Elem(), "")
}

// Redacted returns the configuration with secrets masked.
// Pass the secrets Config returned by LoadWithSecrets() to mask those values.
func (c *Config) Redacted(secrets *Config) string {
	if secrets == nil {
		return c.String()
	}
	return formatStructWithMask(reflect.ValueOf(c).Elem(), reflect.ValueOf(secrets).Elem(), "")
}

func formatStruct(v reflect.Value, prefix string) string {
	var sb strings.Builder
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)

		if !value.CanInterface() {
			continue
		}

		fieldName := field.Name
		if tag := field.Tag.Get("mapstructure"); tag != "" && tag != "-" {
			fieldName = tag
		}

		switch value.Kind() {
		case reflect.Struct:
			sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
			sb.WriteString(formatStruct(value, prefix+"  "))
		case reflect.Slice:
			if value.Len() == 0 {
				sb.WriteString(fmt.Sprintf("%s%s: []\n", prefix, fieldName))
			} else {
				sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
				for j := 0; j < value.Len(); j++ {
					elem := value.Index(j)
					sb.WriteString(fmt.Sprintf("%s  - %v\n", prefix, elem.Interface()))
				}
			}
		case reflect.Map:
			if value.Len() == 0 {
				sb.WriteString(fmt.Sprintf("%s%s: {}\n", prefix, fieldName))
			} else {
				sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
				for _, key := range value.MapKeys() {
					mapValue := value.MapIndex(key)
					sb.WriteString(fmt.Sprintf("%s  %v: %v\n", prefix, key.Interface(), mapValue.Interface()))
				}
			}
		default:
			sb.WriteString(fmt.Sprintf("%s%s: %v\n", prefix, fieldName, value.Interface()))
		}
	}

	return sb.String()
}

func formatStructWithMask(v, mask reflect.Value, prefix string) string {
	var sb strings.Builder
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)
		maskValue := mask.Field(i)

		if !value.CanInterface() {
			continue
		}

		fieldName := field.Name
		if tag := field.Tag.Get("mapstructure"); tag != "" && tag != "-" {
			fieldName = tag
		}

		switch value.Kind() {
		case reflect.Struct:
			sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
			sb.WriteString(formatStructWithMask(value, maskValue, prefix+"  "))
		case reflect.Slice:
			if value.Len() == 0 {
				sb.WriteString(fmt.Sprintf("%s%s: []\n", prefix, fieldName))
			} else {
				sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
				for j := 0; j < value.Len(); j++ {
					elem := value.Index(j)
					sb.WriteString(fmt.Sprintf("%s  - %v\n", prefix, elem.Interface()))
				}
			}
		case reflect.Map:
			if value.Len() == 0 {
				sb.WriteString(fmt.Sprintf("%s%s: {}\n", prefix, fieldName))
			} else {
				sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
				for _, key := range value.MapKeys() {
					mapValue := value.MapIndex(key)
					sb.WriteString(fmt.Sprintf("%s  %v: %v\n", prefix, key.Interface(), mapValue.Interface()))
				}
			}
		default:
			displayValue := value.Interface()
			// Check if this field has a non-zero value in secrets
			if shouldRedact(maskValue) {
				displayValue = "***"
			}
			sb.WriteString(fmt.Sprintf("%s%s: %v\n", prefix, fieldName, displayValue))
		}
	}

	return sb.String()
}

func shouldRedact(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}

	switch v.Kind() {
	case reflect.String:
		return v.String() != ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0
	case reflect.Bool:
		return v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() > 0
	default:
		return false
	}
}
