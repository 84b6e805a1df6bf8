package cli

import (
	"quiz_edu_backend/internal/app"
	"quiz_edu_backend/internal/config"

	"github.com/spf13/cobra"
)

func newServeCmd(configDir *string) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configDir)
			if err != nil {
				return err
			}
			// release 模式下默认不迁移，--migrate 强制执行
			cfg.ForceMigrate = migrate

			app.NewApp(cfg).Run(*configDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations on startup even in release mode")
	return cmd
}
