package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/plan"
	"github.com/klauern/permisync/internal/ui"
)

func retryCommand() *cli.Command {
	return &cli.Command{
		Name:  "retry",
		Usage: "Retry the failed items from the last sync session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Show what would be retried without writing anything",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, ok, err := a.history.LoadLastPlan()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no previous sync session to retry")
			}

			narrowed, retried := plan.BuildRetryPlan(stored.Plan, stored.Status)
			if len(retried) == 0 {
				fmt.Println(ui.StatusSuccess("sin elementos fallidos que reintentar"))
				return nil
			}

			fmt.Print(ui.RenderPlan(narrowed))
			if cmd.Bool("dry-run") {
				return nil
			}

			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}
			summary, err := engine.ExecutePlan(ctx, narrowed)
			if err != nil {
				return err
			}

			status := stored.Status
			for _, uuid := range retried {
				status[uuid] = plan.StatusOK
			}
			if err := a.history.SaveLastPlan(stored.Plan, status, time.Now()); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("%d elemento(s) reintentado(s), %d fila(s) escritas",
				len(retried), summary.InsertedRemote+summary.UpdatedRemote)))
			return nil
		},
	}
}
