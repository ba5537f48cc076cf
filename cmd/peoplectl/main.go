package main

import (
	"github.com/nimburion/documentdb/internal/people"
	"github.com/nimburion/documentdb/pkg/cli"
)

func main() {
	cli.Execute(cli.NewRootCommand(cli.Options{
		Name:         "peoplectl",
		Description:  "Manage person documents in MongoDB, DynamoDB, PostgreSQL or memory",
		EnvPrefix:    "PEOPLE",
		HealthChecks: people.HealthChecks,
		Commands:     people.Commands(),
	}))
}
