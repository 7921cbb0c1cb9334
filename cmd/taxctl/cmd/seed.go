package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taxdesk/internal/database"
	"taxdesk/internal/repository"
	"taxdesk/internal/service"
	"taxdesk/pkg/config"
)

var seedFlags struct {
	adminUsername string
	adminEmail    string
	adminPassword string
	adminPhone    string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the database and seed roles, permissions and transaction types",
	Long: `Run the schema migration, create the default roles and permissions and the
default transaction type catalogue. With --admin-email and --admin-password an
administrator account is created as well.

Connection settings are read from the same environment as the API server.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.adminUsername, "admin-username", "admin", "username of the administrator to create")
	f.StringVar(&seedFlags.adminEmail, "admin-email", "", "email of the administrator to create")
	f.StringVar(&seedFlags.adminPassword, "admin-password", "", "password of the administrator to create")
	f.StringVar(&seedFlags.adminPhone, "admin-phone", "-", "phone of the administrator to create")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	zl := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.NewConnection(cfg.DB, zl)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	txManager := repository.NewTransactionManager(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	if err := service.NewRoleService(roleRepo, txManager).SeedDefaultRolesAndPermissions(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	n, err := service.NewTransactionTypeService(repository.NewTransactionTypeRepository(db), auditRepo).SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed transaction types: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "roles and permissions ready, %d transaction types created\n", n)

	if seedFlags.adminEmail == "" {
		return nil
	}
	if seedFlags.adminPassword == "" {
		return errors.New("--admin-password is required with --admin-email")
	}

	users := service.NewUserService(repository.NewUserRepository(db), roleRepo, auditRepo, cfg.JWT)
	user, err := users.CreateUser(ctx, service.CreateUserRequest{
		Username: seedFlags.adminUsername,
		Email:    seedFlags.adminEmail,
		Phone:    seedFlags.adminPhone,
		Password: seedFlags.adminPassword,
		Role:     service.RoleAdmin,
	})
	switch {
	case errors.Is(err, service.ErrConflict):
		fmt.Fprintf(cmd.OutOrStdout(), "administrator %s already exists\n", seedFlags.adminEmail)
		return nil
	case err != nil:
		return fmt.Errorf("create administrator: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created (%s)\n", user.Email, user.ID)
	return nil
}
