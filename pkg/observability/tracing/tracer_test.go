package tracing

import (
	"context"
	"testing"
	"time"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewTracerProvider(ctx, TracerConfig{ServiceName: "peoplectl", Enabled: false})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got: %v", err)
	}
	if provider.Provider() == nil {
		t.Fatal("expected a provider")
	}

	_, span := provider.Tracer("test").Start(ctx, "noop")
	if span.SpanContext().IsSampled() {
		t.Fatal("disabled tracing must not sample spans")
	}
	span.End()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestNewTracerProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		config      TracerConfig
		expectedErr string
	}{
		{"missing service name", TracerConfig{Enabled: true, Endpoint: "localhost:4317"}, "service name is required"},
		{"missing endpoint", TracerConfig{ServiceName: "peoplectl", Enabled: true}, "OTLP endpoint is required"},
		{"negative sample rate", TracerConfig{ServiceName: "peoplectl", Endpoint: "localhost:4317", SampleRate: -0.1, Enabled: true}, "sample rate must be between 0 and 1"},
		{"sample rate too high", TracerConfig{ServiceName: "peoplectl", Endpoint: "localhost:4317", SampleRate: 1.5, Enabled: true}, "sample rate must be between 0 and 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTracerProvider(context.Background(), tt.config)
			if err == nil || err.Error() != tt.expectedErr {
				t.Fatalf("expected error %q, got %v", tt.expectedErr, err)
			}
		})
	}
}
