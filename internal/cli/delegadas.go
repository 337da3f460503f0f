package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/similarity"
	"github.com/klauern/permisync/internal/ui"
)

func delegadasCommand() *cli.Command {
	return &cli.Command{
		Name:      "delegadas",
		Usage:     "List delegates and flag likely duplicate identifiers",
		UsageText: "permisync delegadas [--threshold 0.8]",
		Description: `List the distinct delegate identifiers found in the local
   database. Legacy worksheet rows carry hand-typed names, so the same
   delegate can appear under several spellings; pairs above the similarity
   threshold are flagged for review.`,
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  "threshold",
				Usage: "Minimum similarity score (0-1) to flag a pair",
				Value: 0.8,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.local.ChangedSince(ctx, "")
			if err != nil {
				return err
			}

			delegadas := similarity.Delegadas(records)
			if len(delegadas) == 0 {
				fmt.Println("No hay delegadas registradas.")
				return nil
			}

			fmt.Println(ui.Header("Delegadas"))
			for _, d := range delegadas {
				fmt.Printf("  %s  %s\n", ui.Bold(d.ID), ui.Dim(fmt.Sprintf("%d solicitud(es)", d.Count)))
			}

			cfg := similarity.DefaultMatcherConfig()
			cfg.Threshold = cmd.Float("threshold")
			matches := similarity.NewMatcher(cfg).FindSimilar(delegadas)
			if len(matches) == 0 {
				return nil
			}

			fmt.Println()
			fmt.Println(ui.Header("Posibles duplicados"))
			for _, m := range matches {
				fmt.Println(ui.StatusWarning(fmt.Sprintf("%q y %q (similitud %.0f%%)", m.A.ID, m.B.ID, m.Score*100)))
			}
			fmt.Println(ui.Dim("  unifica la grafía en la hoja para evitar filas divididas"))
			return nil
		},
	}
}
