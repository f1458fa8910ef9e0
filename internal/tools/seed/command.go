package seed

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"authflow/internal/config"
	"authflow/internal/database"
)

type options struct {
	demoEmail           string
	demoPassword        string
	bootstrapAdminEmail string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database migration and seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.demoEmail, "demo-email", "", "override demo user email")
	cmd.PersistentFlags().StringVar(&opts.demoPassword, "demo-password", "", "override demo user password")
	cmd.PersistentFlags().StringVar(&opts.bootstrapAdminEmail, "bootstrap-admin-email", "", "override bootstrap admin email")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newVerifyEmailCommand())
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Run migrations and apply seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := loadConfigDB()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			demoEmail, demoPassword, adminEmail := resolve(cfg, opts)
			report, err := database.Seed(db, demoEmail, demoPassword, adminEmail)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			cmd.Printf("seed complete: created_users=%d promoted_admin=%t noop=%t\n",
				report.CreatedUsers, report.PromotedAdmin, report.Noop)
			return nil
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigDB()
			if err != nil {
				return err
			}
			demoEmail, _, adminEmail := resolve(cfg, opts)
			cmd.Println("would migrate users, oauth_accounts and the three token tables")
			if demoEmail != "" {
				cmd.Printf("would ensure verified demo user: %s\n", demoEmail)
			}
			if adminEmail != "" {
				cmd.Printf("would promote to ADMIN if present: %s\n", adminEmail)
			}
			return nil
		},
	}
}

func newVerifyEmailCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark a user's email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("email is required")
			}
			_, db, err := loadConfigDB()
			if err != nil {
				return err
			}
			res := db.Exec("UPDATE users SET email_verified_at = CURRENT_TIMESTAMP WHERE lower(email) = lower(?)", strings.TrimSpace(email))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("no user found for %s", email)
			}
			cmd.Printf("marked email verified: %s\n", strings.TrimSpace(strings.ToLower(email)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address to mark verified")
	return cmd
}

func resolve(cfg *config.Config, opts *options) (demoEmail, demoPassword, adminEmail string) {
	demoEmail = cfg.SeedDemoEmail
	demoPassword = cfg.SeedDemoPassword
	adminEmail = cfg.BootstrapAdminEmail
	if opts.demoEmail != "" {
		demoEmail = opts.demoEmail
	}
	if opts.demoPassword != "" {
		demoPassword = opts.demoPassword
	}
	if opts.bootstrapAdminEmail != "" {
		adminEmail = opts.bootstrapAdminEmail
	}
	return demoEmail, demoPassword, adminEmail
}

func loadConfigDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
