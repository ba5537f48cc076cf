package logger_test

import (
	"os"

	"github.com/nimburion/documentdb/pkg/observability/logger"
)

func ExampleNewZapLogger() {
	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.InfoLevel,
		Format: logger.JSONFormat,
		Output: os.Stderr,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	repoLog := log.With("component", "document_query_repository", "container", "people")
	repoLog.Info("documents queried", "partition_key", "Carrero", "count", 3)
}
