package cmd

import (
	"focusgallery/config"
	"focusgallery/logging"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var envFile string
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "focusgallery",
		Short: "Categorized photo gallery with a REST API and a Telegram bot",
		Long: `Focus Gallery stores year-tagged photos by category.

The serve command runs the REST API backed by MongoDB and S3 or MinIO.
The bot command runs the Telegram bot that browses and uploads through that API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(envFile)
			if err != nil {
				return err
			}
			*cfg = *loaded
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")
	cmd.AddCommand(newServeCmd(cfg), newBotCmd(cfg))

	return cmd
}
