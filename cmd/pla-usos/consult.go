package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajuntament-olot/pla-usos/internal/consult"
	"github.com/ajuntament-olot/pla-usos/internal/model"
)

var consultFlags struct {
	DomCode   string
	HeadingID int64
	Other     string
	DNI       string
	Name      string
	Role      string
	Out       string
}

var consultCmd = &cobra.Command{
	Use:   "consult",
	Short: "Run one inquiry and write the PDF report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if consultFlags.HeadingID == 0 && consultFlags.Other == "" {
			return eris.New("consult: either --heading or --other is required")
		}

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		req := consult.Request{
			Requester: model.Requester{
				DNI:  consultFlags.DNI,
				Name: consultFlags.Name,
				Role: consultFlags.Role,
			},
			DomCode:          consultFlags.DomCode,
			HeadingID:        consultFlags.HeadingID,
			OtherActivity:    consultFlags.Other != "",
			OtherDescription: consultFlags.Other,
		}

		outcome, err := env.Service.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		if outcome.Pending {
			fmt.Printf("Consulta %s registrada; l'activitat no figura al catàleg i queda pendent de revisió.\n", outcome.RecordID)
			return nil
		}

		out := consultFlags.Out
		if out == "" {
			out = fmt.Sprintf("consulta-%s.pdf", outcome.RecordID)
		}
		if err := os.WriteFile(out, outcome.PDF, 0o644); err != nil {
			return eris.Wrap(err, "consult: write report")
		}

		zap.L().Info("consult: report written",
			zap.String("consultation_id", outcome.RecordID),
			zap.String("verdict", string(outcome.Result.Verdict)),
			zap.String("path", out),
		)
		fmt.Printf("Consulta %s: %s (%s)\n", outcome.RecordID, outcome.Result.Verdict, out)
		return nil
	},
}

func init() {
	consultCmd.Flags().StringVar(&consultFlags.DomCode, "address", "", "address code (dom code)")
	consultCmd.Flags().Int64Var(&consultFlags.HeadingID, "heading", 0, "activity heading id")
	consultCmd.Flags().StringVar(&consultFlags.Other, "other", "", "free-text description of an uncataloged activity")
	consultCmd.Flags().StringVar(&consultFlags.DNI, "dni", "", "requester DNI")
	consultCmd.Flags().StringVar(&consultFlags.Name, "name", "", "requester name")
	consultCmd.Flags().StringVar(&consultFlags.Role, "role", "", "requester role (owner, agent, ...)")
	consultCmd.Flags().StringVar(&consultFlags.Out, "out", "", "output PDF path")
	_ = consultCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(consultCmd)
}
