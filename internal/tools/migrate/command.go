package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/memberkit/credential-service/internal/database"
	"github.com/memberkit/credential-service/internal/di"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/tools/common"
	"github.com/memberkit/credential-service/internal/tools/ui"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration tooling for the credential store",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
		newBootstrapCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "up", func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return []string{"schema migration applied", "service: " + cfg.OTELServiceName}, nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "status", func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				sqlDB, err := db.DB()
				if err != nil {
					return nil, err
				}
				if err := sqlDB.PingContext(ctx); err != nil {
					return nil, fmt.Errorf("db ping: %w", err)
				}
				return []string{"database reachable", "service: " + cfg.OTELServiceName}, nil
			})
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show migration plan (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "plan", func(ctx context.Context) ([]string, error) {
				return []string{
					"would apply AutoMigrate for: role, user, user_role, user_setting, local_credential",
					"no mutation executed in plan mode",
				}, nil
			})
		},
	}
}

func newBootstrapCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Apply migrations and seed roles plus the bootstrap admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "bootstrap", func(ctx context.Context) ([]string, error) {
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return nil, err
				}
				bootstrap, err := di.InitializeSchemaBootstrap()
				if err != nil {
					return nil, err
				}
				defer func() { _ = bootstrap.Close() }()
				report, err := bootstrap.Run()
				if err != nil {
					return nil, err
				}
				return bootstrapDetails(report), nil
			})
		},
	}
}

func bootstrapDetails(report *database.SeedReport) []string {
	if report == nil || report.Noop {
		return []string{"schema migration applied", "seed: nothing to do"}
	}
	return []string{
		"schema migration applied",
		fmt.Sprintf("roles created: %d", report.CreatedRoles),
		fmt.Sprintf("admin created: %t", report.CreatedAdmin),
		fmt.Sprintf("admin role bound: %t", report.BoundAdmin),
	}
}

func execute(opts *options, command string, fn func(context.Context) ([]string, error)) error {
	title := "migrate " + command
	details, err := run(opts, title, fn)
	observability.RecordToolCommandRun(context.Background(), "migrate", command, common.Outcome(err))
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.RunWithTimeout(title, opts.timeout, fn)
}
