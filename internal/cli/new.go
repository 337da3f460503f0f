package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/model"
	"github.com/klauern/permisync/internal/security"
	"github.com/klauern/permisync/internal/ui"
	"github.com/klauern/permisync/internal/validation"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Record a new leave request locally",
		UsageText: "permisync new --delegada <uuid> --fecha <YYYY-MM-DD> [options]",
		Description: `Store a leave request in the local database. The request is pushed
   to the shared worksheet on the next sync.

   Examples:
     permisync new --delegada d-7 --fecha 2026-03-15 --full-day --motivo "pleno sindical"
     permisync new --delegada d-7 --fecha 2026-03-15 --from 09:00 --to 13:00`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "delegada",
				Usage:    "Delegate identifier the request belongs to",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "fecha",
				Usage:    "Date of the leave (YYYY-MM-DD)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "Start hour (HH:MM), for partial-day requests",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "End hour (HH:MM), for partial-day requests",
			},
			&cli.IntFlag{
				Name:  "minutes",
				Usage: "Total minutes, when no hour range applies",
			},
			&cli.BoolFlag{
				Name:  "full-day",
				Usage: "Mark the request as a full working day",
			},
			&cli.StringFlag{
				Name:  "motivo",
				Usage: "Free-text reason",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			now := model.FormatTimestamp(time.Now().UTC())
			lr := model.LeaveRequest{
				UUID:            uuid.NewString(),
				DelegadaUUID:    cmd.String("delegada"),
				Fecha:           cmd.String("fecha"),
				HoraInicio:      cmd.String("from"),
				HoraFin:         cmd.String("to"),
				MinutosTotal:    int(cmd.Int("minutes")),
				JornadaCompleta: cmd.Bool("full-day"),
				Motivo:          cmd.String("motivo"),
				Estado:          "PENDIENTE",
				CreatedAt:       now,
				UpdatedAt:       now,
			}

			result := validation.ValidateRequest(lr)
			for _, warning := range result.Warnings {
				fmt.Println(ui.StatusWarning(warning))
			}
			if err := result.Error(); err != nil {
				return err
			}

			// The worksheet is shared with the whole section, so personal
			// data in the free-text reason never leaves this machine.
			scan := security.NewDetector(nil).ScanRequest(lr)
			for _, warning := range scan.Warnings {
				fmt.Println(ui.StatusWarning(warning))
			}
			if err := scan.Error(); err != nil {
				return fmt.Errorf("el motivo contiene datos personales: %w", err)
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.local.Insert(ctx, lr.Record()); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("solicitud %s registrada para %s el %s",
				lr.UUID, lr.DelegadaUUID, lr.Fecha)))
			fmt.Println(ui.Dim("  se enviará a la hoja en la próxima sincronización"))
			return nil
		},
	}
}
