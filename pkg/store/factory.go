package store

import (
	"fmt"
	"strings"

	"github.com/nimburion/documentdb/pkg/config"
	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/store/dynamodb"
	"github.com/nimburion/documentdb/pkg/store/memory"
	"github.com/nimburion/documentdb/pkg/store/mongodb"
	"github.com/nimburion/documentdb/pkg/store/postgres"
)

// Cosa fa: seleziona e inizializza l'adapter del document store in base alla config.
// Cosa NON fa: non crea collection o tabelle; non gestisce fallback tra provider diversi.
// Esempio minimo: adp, err := store.NewDocumentAdapter(cfg.Store, log)
func NewDocumentAdapter(cfg config.StoreConfig, log logger.Logger) (Adapter, error) {
	if log == nil {
		log = logger.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case config.StoreTypeMemory:
		return memory.NewAdapter(log), nil
	case config.StoreTypeMongoDB:
		return mongodb.NewAdapter(mongodb.Config{
			URL:              cfg.MongoDB.URL,
			Database:         cfg.MongoDB.Database,
			ConnectTimeout:   cfg.MongoDB.ConnectTimeout,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	case config.StoreTypeDynamoDB:
		return dynamodb.NewAdapter(dynamodb.Config{
			Region:           cfg.DynamoDB.Region,
			Endpoint:         cfg.DynamoDB.Endpoint,
			AccessKeyID:      cfg.DynamoDB.AccessKeyID,
			SecretAccessKey:  cfg.DynamoDB.SecretAccessKey,
			SessionToken:     cfg.DynamoDB.SessionToken,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	case config.StoreTypePostgres:
		return postgres.NewAdapter(postgres.Config{
			URL:             cfg.Postgres.URL,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
			QueryTimeout:    cfg.OperationTimeout,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported store.type %q (supported: memory, mongodb, dynamodb, postgres)", cfg.Type)
	}
}
