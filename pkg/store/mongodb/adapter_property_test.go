package mongodb

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_ClosedAdapterRefusesWork(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("closed adapter fails ping and session start", prop.ForAll(
		func(database string) bool {
			a := &Adapter{closed: true, database: database, logger: &mockLogger{}}
			_, sessErr := a.StartSession()
			return a.Ping(context.Background()) != nil && sessErr != nil && a.HealthCheck(context.Background()) != nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
