package people

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/nimburion/documentdb/pkg/cli"
	"github.com/nimburion/documentdb/pkg/health"
	"github.com/nimburion/documentdb/pkg/repository/document"
	"github.com/nimburion/documentdb/pkg/specification"
	"github.com/spf13/cobra"
)

// Result is what the people commands print.
type Result struct {
	StatusCode        int      `json:"statusCode" yaml:"statusCode"`
	RequestCharge     float64  `json:"requestCharge" yaml:"requestCharge"`
	People            []Person `json:"people" yaml:"people"`
	ContinuationToken string   `json:"continuationToken,omitempty" yaml:"continuationToken,omitempty"`
}

func resultOf(resp *document.Response[Document, Person], token string) Result {
	people := resp.Entities()
	if people == nil {
		people = []Person{}
	}
	return Result{
		StatusCode:        resp.StatusCode(),
		RequestCharge:     resp.RequestCharge(),
		People:            people,
		ContinuationToken: token,
	}
}

// Commands returns the "people" command group for cli.Options.Commands.
func Commands() []func(app *cli.App) *cobra.Command {
	return []func(app *cli.App) *cobra.Command{Command}
}

// Command builds "people" with get, add, update, delete and query subcommands.
func Command(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Read and write person documents",
	}
	cmd.AddCommand(
		getCommand(app),
		addCommand(app),
		updateCommand(app),
		deleteCommand(app),
		queryCommand(app),
	)
	return cmd
}

// run opens a runtime and a repository for one command and prints what fn returns.
func run(app *cli.App, cmd *cobra.Command, fn func(ctx context.Context, repo *Repository) (Result, error)) (err error) {
	rt, ctx, cancel, err := app.Open(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	repo, err := repositoryFor(rt)
	if err != nil {
		return err
	}
	res, err := fn(ctx, repo)
	if err != nil {
		return err
	}
	return rt.Print(cmd.OutOrStdout(), res)
}

func repositoryFor(rt *cli.Runtime) (*Repository, error) {
	connector, err := cli.Connector[Document](rt)
	if err != nil {
		return nil, err
	}
	return document.New[Document, Person](connector, NewMapper(), rt.RepositoryOptions()...)
}

func getCommand(app *cli.App) *cobra.Command {
	var familyName, id string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read one person by family name and id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(app, cmd, func(ctx context.Context, repo *Repository) (Result, error) {
				resp, err := repo.GetByID(ctx, familyName, id)
				if err != nil {
					return Result{}, err
				}
				if !resp.Found() {
					return Result{}, fmt.Errorf("person %s/%s: %w", familyName, id, document.ErrDocumentNotFound)
				}
				return resultOf(resp, ""), nil
			})
		},
	}
	cmd.Flags().StringVar(&familyName, "family-name", "", "partition key")
	cmd.Flags().StringVar(&id, "id", "", "document id")
	_ = cmd.MarkFlagRequired("family-name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

type personFlags struct {
	id         string
	firstName  string
	middleName string
	familyName string
}

func (f *personFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "document id")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.middleName, "middle-name", "", "middle name")
	cmd.Flags().StringVar(&f.familyName, "family-name", "", "family name, the partition key")
	_ = cmd.MarkFlagRequired("family-name")
}

func (f *personFlags) document() Document {
	return Document{ID: f.id, FirstName: f.firstName, MiddleName: f.middleName, FamilyName: f.familyName}
}

func addCommand(app *cli.App) *cobra.Command {
	var flags personFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a person; a random id is assigned when --id is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := flags.document()
			if doc.ID == "" {
				doc.ID = uuid.NewString()
			}
			return run(app, cmd, func(ctx context.Context, repo *Repository) (Result, error) {
				resp, err := repo.Add(ctx, doc)
				if err != nil {
					return Result{}, err
				}
				return resultOf(resp, ""), nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func updateCommand(app *cli.App) *cobra.Command {
	var flags personFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace an existing person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(app, cmd, func(ctx context.Context, repo *Repository) (Result, error) {
				resp, err := repo.Update(ctx, flags.document())
				if err != nil {
					return Result{}, err
				}
				return resultOf(resp, ""), nil
			})
		},
	}
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func deleteCommand(app *cli.App) *cobra.Command {
	var familyName, id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(app, cmd, func(ctx context.Context, repo *Repository) (Result, error) {
				resp, err := repo.Delete(ctx, id, familyName)
				if err != nil {
					return Result{}, err
				}
				return resultOf(resp, ""), nil
			})
		},
	}
	cmd.Flags().StringVar(&familyName, "family-name", "", "partition key")
	cmd.Flags().StringVar(&id, "id", "", "document id")
	_ = cmd.MarkFlagRequired("family-name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func queryCommand(app *cli.App) *cobra.Command {
	var (
		firstName, familyName, partition, token string
		page, pageSize                          int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List people matching the given fields",
		Long: "List people matching every given field. Without --partition the query spans all " +
			"partitions. Pass the printed continuationToken back with --continuation for the next page.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := Match(firstName, familyName)
			return run(app, cmd, func(ctx context.Context, repo *Repository) (Result, error) {
				res, err := repo.GetPaginatedBySpecification(ctx, spec, partition, document.NewPagination(
					document.WithPage(page),
					document.WithPageSize(pageSize),
					document.WithContinuationToken(token),
				))
				if err != nil {
					return Result{}, err
				}
				return resultOf(res.Response, res.ContinuationToken), nil
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "match this first name")
	cmd.Flags().StringVar(&familyName, "family-name", "", "match this family name")
	cmd.Flags().StringVar(&partition, "partition", "", "restrict the query to one partition key")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page number, ignored with --continuation")
	cmd.Flags().IntVar(&pageSize, "page-size", document.DefaultPageSize, "people per page")
	cmd.Flags().StringVar(&token, "continuation", "", "continuation token from the previous page")
	return cmd
}

// Match combines the non-empty field filters; with none it matches everyone.
func Match(firstName, familyName string) specification.Spec[Document] {
	var specs []specification.Specification[Document]
	if firstName != "" {
		specs = append(specs, FirstName(firstName))
	}
	if familyName != "" {
		specs = append(specs, FamilyName(familyName))
	}
	if len(specs) == 0 {
		return specification.All[Document]()
	}
	return specification.And(specs[0], specs[1:]...)
}

// probeID never names a real person; reading it proves the container answers queries.
const probeID = "00000000-0000-0000-0000-000000000000"

// HealthChecks adds a read probe against the people container.
func HealthChecks(rt *cli.Runtime) []health.Checker {
	return []health.Checker{health.NewProbeChecker("people", func(ctx context.Context) error {
		repo, err := repositoryFor(rt)
		if err != nil {
			return err
		}
		resp, err := repo.GetByID(ctx, "healthcheck", probeID)
		if err != nil {
			return err
		}
		switch resp.StatusCode() {
		case http.StatusOK, http.StatusNotFound:
			return nil
		default:
			return errors.New(http.StatusText(resp.StatusCode()))
		}
	})}
}
