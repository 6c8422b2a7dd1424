package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/jesseKyomuhendo/auth-user-api/internal/config"
	"github.com/jesseKyomuhendo/auth-user-api/internal/logger"
)

type createAccountOptions struct {
	email    string
	password string
	name     string
	admin    bool
}

// NewCreateAccountCmd creates the create-account subcommand used to bootstrap the first administrator.
func NewCreateAccountCmd() *cobra.Command {
	opts := &createAccountOptions{}
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an account directly in the store",
		Long: `Create an active account without going through the Register RPC.
Pass --admin to grant the administrator flag checked by the admin policy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAccount(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "grant administrator rights")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runCreateAccount(cmd *cobra.Command, opts *createAccountOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.UseMemoryStore() {
		return oops.Code("CONFIG_INVALID").Errorf("create-account needs a persistent store, STORE_DRIVER is memory")
	}
	log := logger.Setup(cfg.Debug)
	ctx := log.WithContext(cmd.Context())

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	auth, err := newAuthService(cfg, st)
	if err != nil {
		return err
	}
	acc, err := auth.CreateAccount(ctx, opts.email, opts.password, opts.name, opts.admin)
	if err != nil {
		return oops.Code("CREATE_ACCOUNT_FAILED").With("email", opts.email).Wrap(err)
	}
	cmd.Printf("Created account %s (%s, admin=%t)\n", acc.ID, acc.Email, acc.Admin)
	return nil
}
