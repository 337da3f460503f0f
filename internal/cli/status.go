package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/ui"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the last sync result and pending local changes",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println(ui.SectionTitle("estado de sincronización"))
			fmt.Println()

			entry, ok, err := a.history.Latest()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println(ui.StatusPendingLine("sin sincronizaciones registradas"))
			} else {
				line := fmt.Sprintf("última sincronización: %s (%s, %s)",
					entry.FinishedAt.Format("2006-01-02 15:04"), entry.Operation, entry.Status)
				if entry.Status == "OK" {
					fmt.Println(ui.StatusSuccess(line))
				} else {
					fmt.Println(ui.StatusError(line))
				}
				fmt.Println(ui.Dim(fmt.Sprintf("  %d alta(s), %d cambio(s), %d duplicado(s) omitido(s)",
					entry.Creations, entry.Updates, entry.OmittedDuplicates)))
			}

			watermark, err := a.state.LastSyncAt()
			if err != nil {
				return err
			}
			pending, err := a.local.PendingCount(ctx, watermark)
			if err != nil {
				return err
			}
			if pending > 0 {
				fmt.Println(ui.StatusPendingLine(fmt.Sprintf("%d cambio(s) local(es) sin sincronizar", pending)))
			} else {
				fmt.Println(ui.StatusSuccess("sin cambios locales pendientes"))
			}

			conflicts, err := a.local.OpenConflicts(ctx)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				fmt.Println()
				fmt.Println(ui.SectionTitle("conflictos abiertos"))
				for _, c := range conflicts {
					fmt.Println("  " + ui.StatusConflict(fmt.Sprintf("%s: %s (detectado %s)", c.Label, c.Reason, c.DetectedAt)))
				}
				fmt.Println(ui.Dim("  usa 'permisync resolve' para resolverlos"))
			}
			return nil
		},
	}
}
