package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/backup"
	"github.com/klauern/permisync/internal/history"
	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/plan"
	"github.com/klauern/permisync/internal/progress"
	"github.com/klauern/permisync/internal/security"
	syncer "github.com/klauern/permisync/internal/sync"
	"github.com/klauern/permisync/internal/ui"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Synchronize leave requests with the shared worksheet",
		UsageText: "permisync sync [options]",
		Description: `Run one synchronization session against the worksheet.

   Operations: pull (worksheet to local), push (local to worksheet),
   bidirectional (pull then push).

   Examples:
     permisync sync
     permisync sync --operation push --dry-run
     permisync sync --max-attempts 5 --timeout 2m`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "operation",
				Aliases: []string{"o"},
				Usage:   "Sync direction: pull, push, or bidirectional",
				Value:   string(syncer.OperationBidirectional),
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Preview the session without writing anything",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-attempt timeout (overrides configuration)",
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "Maximum attempts per session (overrides configuration)",
			},
			&cli.BoolFlag{
				Name:  "skip-schema-check",
				Usage: "Skip the local schema check before syncing",
			},
			&cli.BoolFlag{
				Name:  "skip-backup",
				Usage: "Skip the automatic database snapshot before syncing",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			op := syncer.Operation(cmd.String("operation"))
			if !op.IsValid() {
				return fmt.Errorf("invalid operation %q: must be pull, push, or bidirectional", cmd.String("operation"))
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.syncOptions(op)
			opts.DryRun = cmd.Bool("dry-run")
			if cmd.Bool("skip-schema-check") {
				opts.CheckSchema = false
			}
			if d := cmd.Duration("timeout"); d > 0 {
				opts.Timeout = d
			}
			if n := cmd.Int("max-attempts"); n > 0 {
				opts.Retry.MaxAttempts = int(n)
			}

			if !opts.DryRun && op != syncer.OperationPush && !cmd.Bool("skip-backup") {
				preSyncSnapshot(a)
			}

			if op != syncer.OperationPull {
				if err := warnPersonalData(ctx, a); err != nil {
					logging.Warn("personal data scan failed", "error", err)
				}
			}

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}

			spinner := progress.Spinner("Sincronizando " + op.String())
			report, err := orch.Run(ctx, opts)
			_ = spinner.Finish()
			if err != nil {
				return err
			}

			fmt.Print(ui.RenderReport(report))

			if report.DryRun {
				return nil
			}
			if err := recordSession(ctx, a, report); err != nil {
				logging.Warn("failed to record sync session", "error", err)
			}
			if !report.Succeeded() {
				return fmt.Errorf("sync finished with status %s", report.Status)
			}
			return nil
		},
	}
}

// preSyncSnapshot backs up the database before remote rows are pulled over
// it. A failed snapshot is reported but never blocks the sync.
func preSyncSnapshot(a *app) {
	dir := a.backupDir()
	if _, err := backup.Create(dir, a.cfg.Storage.DatabasePath, backup.Options{
		Trigger:     backup.TriggerPreSync,
		Description: "antes de sincronizar",
	}); err != nil {
		logging.Warn("pre-sync snapshot failed", "error", err)
		return
	}

	if deleted, err := backup.Cleanup(dir, backup.DefaultCleanupOptions()); err != nil {
		logging.Warn("snapshot cleanup failed", "error", err)
	} else if len(deleted) > 0 {
		logging.Debug("pruned old snapshots", logging.Count(len(deleted)))
	}
}

// warnPersonalData scans the motivo of rows about to be pushed. Rows created
// through this CLI were already screened, but imported or hand-edited rows
// were not.
func warnPersonalData(ctx context.Context, a *app) error {
	watermark, err := a.state.LastSyncAt()
	if err != nil {
		return err
	}
	records, err := a.local.ChangedSince(ctx, watermark)
	if err != nil {
		return err
	}

	found := security.NewDetector(nil).ScanRecords(records)
	for uuid, detections := range found {
		for _, det := range detections {
			fmt.Println(ui.StatusWarning(fmt.Sprintf("%s: %s", uuid, det.Description)))
		}
	}
	return nil
}

// recordSession appends the report to the history ledger and stores the
// session's execution plan so failed items can be retried later.
func recordSession(ctx context.Context, a *app, report *syncer.Report) error {
	if err := a.history.Append(history.EntryFromReport(report)); err != nil {
		return err
	}

	engine, err := a.engine(ctx)
	if err != nil {
		// Remote unreachable after the run; history alone is enough.
		return nil
	}
	p, err := engine.Plan(ctx)
	if err != nil {
		return nil
	}
	return a.history.SaveLastPlan(p, planStatus(p, report), time.Now())
}

// planStatus marks conflicted items so a later retry keeps them held back;
// on a failed run the writable items are marked for retry instead.
func planStatus(p *plan.ExecutionPlan, report *syncer.Report) map[string]plan.ItemStatus {
	status := adjustedStatus(p)
	if !report.Succeeded() {
		for _, item := range p.ToCreate {
			status[item.UUID] = plan.StatusError
		}
		for _, item := range p.ToUpdate {
			status[item.UUID] = plan.StatusError
		}
	}
	return status
}
