package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/plan"
	"github.com/klauern/permisync/internal/ui"
	"github.com/klauern/permisync/internal/ui/tui"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve divergent rows interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "all",
				Usage: "Resolve every conflict the same way: keep_local or keep_remote",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Resolve conflicts in an interactive terminal UI",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}

			base, err := engine.Plan(ctx)
			if err != nil {
				return err
			}
			if len(base.Conflicts) == 0 {
				fmt.Println(ui.StatusSuccess("sin conflictos pendientes"))
				return nil
			}

			decisions, err := collectDecisions(cmd, base.Conflicts)
			if err != nil {
				return err
			}
			if len(decisions) == 0 {
				fmt.Println(ui.StatusSkipped("ningún conflicto resuelto"))
				return nil
			}

			resolver := plan.NewResolver(a.cfg.Storage.HistoryDir)
			adjusted, unresolved, err := resolver.Apply(base, decisions)
			if err != nil {
				return err
			}

			summary, err := engine.ExecutePlan(ctx, adjusted)
			if err != nil {
				return err
			}

			for uuid := range decisions {
				if _, err := a.local.ResolveConflict(ctx, uuid); err != nil {
					fmt.Fprintln(os.Stderr, ui.StatusWarning(fmt.Sprintf("no se pudo cerrar el conflicto %s: %v", uuid, err)))
				}
			}

			if err := a.history.SaveLastPlan(adjusted, adjustedStatus(adjusted), time.Now()); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("%d conflicto(s) resuelto(s), %d fila(s) escritas",
				len(decisions), summary.InsertedRemote+summary.UpdatedRemote)))
			if len(unresolved) > 0 {
				fmt.Println(ui.StatusPendingLine(fmt.Sprintf("%d conflicto(s) siguen pendientes", len(unresolved))))
			}
			return nil
		},
	}
}

func collectDecisions(cmd *cli.Command, conflicts []plan.Item) (map[string]plan.Decision, error) {
	if all := cmd.String("all"); all != "" {
		decision := plan.Decision(all)
		if !decision.IsValid() {
			return nil, fmt.Errorf("invalid decision %q: must be keep_local or keep_remote", all)
		}
		decisions := make(map[string]plan.Decision, len(conflicts))
		for _, item := range conflicts {
			decisions[item.UUID] = decision
		}
		return decisions, nil
	}
	if cmd.Bool("tui") {
		result, err := tui.RunConflictList(conflicts)
		if err != nil {
			return nil, err
		}
		if result.Action != tui.ConflictActionResolve {
			return nil, nil
		}
		return result.Decisions, nil
	}
	return NewConflictPrompter(os.Stdin, os.Stdout).Collect(conflicts)
}

func adjustedStatus(p *plan.ExecutionPlan) map[string]plan.ItemStatus {
	status := make(map[string]plan.ItemStatus, p.ItemCount())
	for _, item := range p.ToCreate {
		status[item.UUID] = plan.StatusOK
	}
	for _, item := range p.ToUpdate {
		status[item.UUID] = plan.StatusOK
	}
	for _, item := range p.Conflicts {
		status[item.UUID] = plan.StatusConflict
	}
	return status
}
