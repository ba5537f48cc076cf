package store

import (
	"context"
	"strings"
	"testing"

	"github.com/nimburion/documentdb/pkg/config"
	"github.com/nimburion/documentdb/pkg/store/memory"
)

func TestNewDocumentAdapter_Memory(t *testing.T) {
	adapter, err := NewDocumentAdapter(config.StoreConfig{Type: " Memory "}, nil)
	if err != nil {
		t.Fatalf("expected memory adapter, got %v", err)
	}
	if _, ok := adapter.(*memory.Adapter); !ok {
		t.Fatalf("expected *memory.Adapter, got %T", adapter)
	}
	if err := adapter.HealthCheck(context.Background()); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := adapter.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected healthcheck to fail after close")
	}
}

func TestNewDocumentAdapter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr string
	}{
		{"unsupported", config.StoreConfig{Type: "cosmos"}, `unsupported store.type "cosmos"`},
		{"mongodb without url", config.StoreConfig{Type: config.StoreTypeMongoDB}, "mongodb URL is required"},
		{
			"mongodb without database",
			config.StoreConfig{Type: config.StoreTypeMongoDB, MongoDB: config.MongoDBConfig{URL: "mongodb://localhost:27017"}},
			"mongodb database is required",
		},
		{"dynamodb without region", config.StoreConfig{Type: config.StoreTypeDynamoDB}, "aws region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentAdapter(tt.cfg, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
