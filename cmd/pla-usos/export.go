package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajuntament-olot/pla-usos/internal/store"
)

var exportFlags struct {
	Out     string
	DomCode string
	Verdict string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the consultation log to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Store.ListConsultations(cmd.Context(), store.Filter{
			DomCode: exportFlags.DomCode,
			Verdict: exportFlags.Verdict,
		})
		if err != nil {
			return err
		}

		if err := store.ExportXLSX(list, exportFlags.Out); err != nil {
			return err
		}
		zap.L().Info("export: workbook written",
			zap.Int("consultations", len(list)),
			zap.String("path", exportFlags.Out),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.Out, "out", "consultes.xlsx", "output xlsx path")
	exportCmd.Flags().StringVar(&exportFlags.DomCode, "address", "", "filter by address code")
	exportCmd.Flags().StringVar(&exportFlags.Verdict, "verdict", "", "filter by verdict")
	rootCmd.AddCommand(exportCmd)
}
