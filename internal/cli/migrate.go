package cli

import (
	"fmt"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/pkg/database"
	"quiz_edu_backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openDB(configDir string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, err
	}
	cfg.ForceMigrate = true
	logger.InitLogger(cfg)

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newMigrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := openDB(*configDir); err != nil {
				return err
			}
			logger.Log.Info("数据库迁移完成")
			return nil
		},
	}
}

func newCreateAdminCmd(configDir *string) *cobra.Command {
	var in service.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Email == "" || len(in.Password) < 8 {
				return fmt.Errorf("--email and --password (at least 8 characters) are required")
			}
			if in.Name == "" {
				in.Name = "admin"
			}
			cfg, db, err := openDB(*configDir)
			if err != nil {
				return err
			}

			auth := service.NewAuthService(repository.NewUserRepository(db), cfg)
			user, err := auth.CreateUser(cmd.Context(), in, model.Admin)
			if err != nil {
				return err
			}
			logger.Log.Info("Administrator created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "login password")
	return cmd
}
