package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajuntament-olot/pla-usos/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pla-usos",
	Short: "Land-use plan consultation service",
	Long:  "Resolves whether a commercial activity is admitted at a street address under the municipal land-use plan and issues the informational PDF report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
