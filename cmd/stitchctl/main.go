package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"stitchdesk/internal/app"
	"stitchdesk/internal/config"
	"stitchdesk/internal/db"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "stitchctl",
		Short:        "maintenance commands for the stitchdesk database",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		migrateCommand(),
		seedPlansCommand(),
		expireCommand(),
		createSuperuserCommand(),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func open() (*app.App, error) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.AMQPURL = ""
	return app.New(cfg, logger.New("stitchctl"))
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update all tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := db.Migrate(a.DB); err != nil {
				return err
			}
			fmt.Println("Migrated")
			return nil
		},
	}
}

func seedPlansCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-plans",
		Short: "insert or update the default subscription plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := seed.Apply(cmd.Context(), a.Subs)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d plans\n", n)
			return nil
		},
	}
}

func expireCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-subscriptions",
		Short: "mark lapsed trials and subscriptions as expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.Services.Subscriptions.ExpireDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Expired %d subscriptions\n", n)
			return nil
		},
	}
}

func createSuperuserCommand() *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "create an account with access to the admin endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.Services.Admin.CreateSuperuser(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			fmt.Printf("Created superuser %s (id %d)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login e-mail")
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
