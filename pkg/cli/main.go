package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/documentdb/pkg/config"
	"github.com/nimburion/documentdb/pkg/health"
	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/repository/document"
	"github.com/nimburion/documentdb/pkg/security"
	"github.com/nimburion/documentdb/pkg/store"
	"github.com/nimburion/documentdb/pkg/version"
	"github.com/spf13/cobra"
)

// AdapterFactory opens the document store adapter described by cfg.
type AdapterFactory func(cfg config.StoreConfig, log logger.Logger) (store.Adapter, error)

// Options defines callbacks for the tool built on top of the shared commands.
type Options struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Optional: overrides store.NewDocumentAdapter (useful for tests/custom adapters).
	AdapterFactory AdapterFactory

	// Optional: extra health checks run by "healthcheck" next to the adapter check.
	HealthChecks func(rt *Runtime) []health.Checker

	// Optional: domain commands. Each receives the App to open a Runtime from.
	Commands []func(app *App) *cobra.Command
}

// App holds the persistent flags shared by every command.
type App struct {
	opts        Options
	configFile  string
	secretFile  string
	envPrefix   string
	output      string
	metricsFile string
	timeout     time.Duration
}

// NewRootCommand creates the CLI with version, healthcheck, config and
// ensure-container subcommands plus the domain commands from opts.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}
	if opts.AdapterFactory == nil {
		opts.AdapterFactory = store.NewDocumentAdapter
	}
	app := &App{opts: opts}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&app.configFile, "config-file", "c", opts.ConfigPath, "config file path")
	flags.StringVar(&app.secretFile, "secret-file", "", "path to secrets file (sets <ENV_PREFIX>_SECRETS_FILE)")
	flags.StringVar(&app.envPrefix, "env-prefix", opts.EnvPrefix, "prefix of environment overrides")
	flags.StringVarP(&app.output, "output", "o", string(OutputJSON), "output format: json or yaml")
	flags.StringVar(&app.metricsFile, "metrics-file", "", "write a Prometheus textfile snapshot here on exit")
	flags.DurationVar(&app.timeout, "timeout", 30*time.Second, "overall deadline for the command")

	rootCmd.AddCommand(
		app.versionCommand(),
		app.healthcheckCommand(),
		app.configCommand(),
		app.ensureContainerCommand(),
	)
	for _, build := range opts.Commands {
		rootCmd.AddCommand(build(app))
	}
	return rootCmd
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := NewPrinter(a.output)
			if err != nil {
				return err
			}
			return printer.Print(cmd.OutOrStdout(), version.Current(a.opts.Name))
		},
	}
}

func (a *App) healthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check connectivity to the document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, ctx, cancel, err := a.Open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer rt.closeInto(&err)

			registry := health.NewRegistry()
			registry.Register(health.NewAdapterChecker(document.SystemOf(rt.Adapter), rt.Adapter, rt.Config.Store.OperationTimeout))
			if a.opts.HealthChecks != nil {
				for _, checker := range a.opts.HealthChecks(rt) {
					registry.Register(checker)
				}
			}

			result := registry.Check(ctx)
			if err := rt.Print(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.IsHealthy() {
				return fmt.Errorf("document store is %s", result.Status)
			}
			return nil
		},
	}
}

func (a *App) configCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applySecretFileFlag(a.envPrefix, a.secretFile); err != nil {
				return err
			}
			cfg, secrets, err := config.NewViperLoader(a.configFile, a.envPrefix).LoadWithSecrets()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), cfg.Redacted(secrets))
			return err
		},
	})
	return configCmd
}

func (a *App) ensureContainerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-container",
		Short: "Create the collection index or table documents are stored in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, ctx, cancel, err := a.Open(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer rt.closeInto(&err)

			if err := document.EnsureContainer(ctx, rt.Adapter, rt.ConnectorOptions()); err != nil {
				return err
			}
			rt.Log.Info("document container ready", "container", rt.Config.Store.Container, "store", rt.Config.Store.Type)
			return nil
		},
	}
}

// LoadConfigAndLogger loads configuration (with secrets) and builds the zap logger it describes.
func LoadConfigAndLogger(cfgPath, envPrefix, secretFilePath string) (*config.Config, *logger.ZapLogger, error) {
	if err := applySecretFileFlag(envPrefix, secretFilePath); err != nil {
		return nil, nil, err
	}
	cfg, _, err := config.NewViperLoader(cfgPath, envPrefix).LoadWithSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level, err := logger.ParseLogLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		return nil, nil, err
	}
	format, err := logger.ParseLogFormat(strings.ToLower(cfg.Log.Format))
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	if level == logger.DebugLevel {
		log.Debug("effective configuration", "config", cfg.String())
	}
	return cfg, log, nil
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	path, err := security.CleanFilePath(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %q: %w", secretFilePath, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("secret file %s must not be a directory", path)
	}
	return os.Setenv(resolveEnvPrefix(envPrefix)+"_SECRETS_FILE", path)
}

func resolveEnvPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return config.DefaultEnvPrefix
	}
	return strings.ToUpper(trimmed)
}

// Execute runs the command and exits with appropriate code: 2 for a rejected
// document command, 1 for anything else.
func Execute(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var derr *document.DocumentError
	if errors.As(err, &derr) {
		return 2
	}
	return 1
}
