package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/database"
	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/security"
	"github.com/memberkit/credential-service/internal/tools/common"
	"github.com/memberkit/credential-service/internal/tools/ui"
)

type options struct {
	envFile             string
	bootstrapAdminEmail string
	ci                  bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Role and bootstrap admin seeding"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.bootstrapAdminEmail, "bootstrap-admin-email", "", "override bootstrap admin email")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newActivateEmailCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Ensure default roles and the bootstrap admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				seedOpts, err := seedOptions(cfg, opts.bootstrapAdminEmail)
				if err != nil {
					return nil, err
				}
				report, err := database.SeedSync(db, seedOpts)
				if err != nil {
					return nil, err
				}
				return reportDetails(report, seedOpts.AdminEmail), nil
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "dry-run", func(ctx context.Context) ([]string, error) {
				cfg, err := common.LoadConfig(opts.envFile)
				if err != nil {
					return nil, err
				}
				return planDetails(adminEmail(cfg, opts.bootstrapAdminEmail), cfg.BootstrapAdminPassword != ""), nil
			})
		},
	}
}

func newActivateEmailCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "activate-email",
		Short: "Activate an account and clear its pending activation token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "activate-email", func(ctx context.Context) ([]string, error) {
				if strings.TrimSpace(email) == "" {
					return nil, fmt.Errorf("email is required")
				}
				_, db, err := common.LoadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				if err := database.ActivateEmail(db, email); err != nil {
					return nil, err
				}
				return []string{"activated account: " + strings.TrimSpace(strings.ToLower(email))}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to activate")
	return cmd
}

func adminEmail(cfg *config.Config, override string) string {
	if override = strings.TrimSpace(strings.ToLower(override)); override != "" {
		return override
	}
	return cfg.BootstrapAdminEmail
}

func seedOptions(cfg *config.Config, override string) (database.SeedOptions, error) {
	hasher, err := security.NewPasswordHasher(cfg.PasswordConfig())
	if err != nil {
		return database.SeedOptions{}, err
	}
	return database.SeedOptions{
		AdminEmail:    adminEmail(cfg, override),
		AdminPassword: cfg.BootstrapAdminPassword,
		Hasher:        hasher,
	}, nil
}

func planDetails(email string, hasPassword bool) []string {
	details := []string{
		fmt.Sprintf("would ensure roles: %s, %s, %s", domain.RoleUser, domain.RoleAdmin, domain.RoleSuperadmin),
	}
	switch {
	case email == "":
		details = append(details, "no bootstrap admin configured")
	case hasPassword:
		details = append(details, "would grant admin to "+email+", creating the account if missing")
	default:
		details = append(details, "would grant admin to "+email+" if the account exists")
	}
	return details
}

func reportDetails(report *database.SeedReport, email string) []string {
	if report.Noop {
		return []string{"already seeded, nothing to do"}
	}
	details := []string{fmt.Sprintf("created roles: %d", report.CreatedRoles)}
	if report.CreatedAdmin {
		details = append(details, "created bootstrap admin: "+email)
	}
	if report.BoundAdmin {
		details = append(details, "granted admin role to: "+email)
	}
	return details
}

func execute(opts *options, command string, fn func(context.Context) ([]string, error)) error {
	title := "seed " + command
	details, err := run(opts, title, fn)
	observability.RecordToolCommandRun(context.Background(), "seed", command, common.Outcome(err))
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
		return fn(context.Background())
	}
	return ui.Run(title, fn)
}
