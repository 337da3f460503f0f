package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/backup"
	"github.com/klauern/permisync/internal/ui"
	"github.com/klauern/permisync/internal/util"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage snapshots of the local database",
		Commands: []*cli.Command{
			backupCreateCommand(),
			backupListCommand(),
			backupRestoreCommand(),
			backupPruneCommand(),
		},
	}
}

func backupCreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Take a snapshot of the local database",
		UsageText: "permisync backup create [--description text]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "description",
				Usage: "Note stored with the snapshot",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			metadata, err := backup.Create(a.backupDir(), a.cfg.Storage.DatabasePath, backup.Options{
				Trigger:     backup.TriggerManual,
				Description: cmd.String("description"),
			})
			if err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess("copia creada: " + metadata.ID))
			fmt.Printf("  %s\n", ui.Dim(metadata.SnapshotPath))
			return nil
		},
	}
}

func backupListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored snapshots, newest first",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snapshots, err := backup.List(a.backupDir())
			if err != nil {
				return err
			}

			if len(snapshots) == 0 {
				fmt.Println("No hay copias de seguridad.")
				return nil
			}

			fmt.Println(ui.Header("Copias de seguridad"))
			for _, snap := range snapshots {
				line := fmt.Sprintf("  %s  %s  %s",
					ui.Bold(snap.ID),
					snap.CreatedAt.Format("2006-01-02 15:04"),
					formatSize(snap.StoredSize),
				)
				if snap.Trigger == backup.TriggerPreSync {
					line += "  " + ui.Dim("(automática)")
				}
				fmt.Println(line)
				if snap.Description != "" {
					fmt.Printf("      %s\n", ui.Dim(snap.Description))
				}
			}

			stats, err := backup.ComputeStats(a.backupDir())
			if err == nil {
				fmt.Printf("\n%d copias, %s en disco\n", stats.TotalSnapshots, formatSize(stats.StoredSize))
			}
			return nil
		},
	}
}

func backupRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a snapshot over the local database",
		UsageText: "permisync backup restore <snapshot-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("usage: permisync backup restore <snapshot-id>")
			}
			snapshotID := cmd.Args().First()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			// The database must be closed before it is overwritten.
			dbPath := a.cfg.Storage.DatabasePath
			backupDir := a.backupDir()
			if err := a.Close(); err != nil {
				return err
			}

			if err := backup.Restore(backupDir, snapshotID, dbPath); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess("base de datos restaurada desde " + snapshotID))
			return nil
		},
	}
}

func backupPruneCommand() *cli.Command {
	return &cli.Command{
		Name:      "prune",
		Usage:     "Delete old snapshots",
		UsageText: "permisync backup prune [--keep n] [--older-than duration] [--dry-run]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "keep",
				Usage: "Number of snapshots to keep",
				Value: 10,
			},
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Delete snapshots older than this duration",
				Value: 30 * 24 * time.Hour,
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Show what would be deleted without deleting",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := backup.Cleanup(a.backupDir(), backup.CleanupOptions{
				MaxSnapshots:   int(cmd.Int("keep")),
				MaxAge:         cmd.Duration("older-than"),
				KeepAtLeastOne: true,
				DryRun:         cmd.Bool("dry-run"),
			})
			if err != nil {
				return err
			}

			if len(deleted) == 0 {
				fmt.Println("No hay copias que eliminar.")
				return nil
			}

			verb := "Eliminadas"
			if cmd.Bool("dry-run") {
				verb = "Se eliminarían"
			}
			fmt.Printf("%s %d copias:\n", verb, len(deleted))
			for _, id := range deleted {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

// backupDir resolves the configured snapshot directory.
func (a *app) backupDir() string {
	if a.cfg.Storage.BackupDir != "" {
		return a.cfg.Storage.BackupDir
	}
	return util.BackupsPath()
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMG"[exp])
}
