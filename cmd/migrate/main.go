package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/config"
	"github.com/aJLaxzzz/foodgram-st/internal/database"
	"github.com/aJLaxzzz/foodgram-st/internal/logger"
	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

var cfg *config.Config

func main() {
	root := &cobra.Command{
		Use:          "foodgram-migrate",
		Short:        "Database maintenance commands",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			_, err = logger.Init(cfg.Env.Verbose(), cfg.LogLevel)
			return err
		},
	}
	root.AddCommand(migrateCmd(), createSuperuserCmd(), setupBucketCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Sync()
}

func openDB() (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("dir", cfg.MigrationsDir))
			return nil
		},
	}
}

func createSuperuserCmd() *cobra.Command {
	var req types.RegisterRequest
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a staff account with superuser rights",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("SUPERUSER_PASSWORD")
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
				return err
			}

			// The superuser never uploads media from the CLI.
			users := service.NewUserService(db, service.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL))
			user, err := users.CreateSuperuser(cmd.Context(), &req)
			if err != nil {
				var verr *service.ValidationError
				if errors.As(err, &verr) {
					for field, msgs := range verr.Fields {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", field, msgs)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %q created with id %d.\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (defaults to $SUPERUSER_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func setupBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup-bucket",
		Short: "Allow public reads on the S3 media bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			s3Cfg, err := config.NewS3Config(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := s3Cfg.SetupBucketPolicy(cmd.Context()); err != nil {
				return fmt.Errorf("failed to apply bucket policy: %w", err)
			}
			logger.Info("bucket policy applied", zap.String("bucket", s3Cfg.BucketName))
			return nil
		},
	}
}
