package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docsearch/src/infrastructure/log"
)

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Semantic search and AI answers over workspace documents",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Setup(viper.GetBool("log.development"), viper.GetInt("log.verbosity"))
	},
	SilenceUsage: true,
}

func init() {
	// .env values must be in the environment before viper binds keys
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error(err, "failed to load .env file")
	}
	settingDefaultConfig()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
