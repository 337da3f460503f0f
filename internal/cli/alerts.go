package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/alert"
	"github.com/klauern/permisync/internal/ui"
)

func alertsCommand() *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "Evaluate operational alerts for the sync setup",
		Commands: []*cli.Command{
			alertsSilenceCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			entries, err := a.history.Entries()
			if err != nil {
				return err
			}

			health := alert.CheckConfiguration(alert.ConfigProbe{
				CredentialsPath: a.cfg.Remote.CredentialsPath,
				SpreadsheetID:   a.cfg.Remote.SpreadsheetID,
				Worksheet:       a.cfg.Remote.Worksheet,
			}, now)

			watermark, err := a.state.LastSyncAt()
			if err != nil {
				return err
			}
			pending, err := a.local.PendingCount(ctx, watermark)
			if err != nil {
				return err
			}

			engine := alert.NewEngine()
			if a.cfg.Alerts.StaleDays > 0 {
				engine.StaleDays = a.cfg.Alerts.StaleDays
			}
			alerts := engine.Evaluate(entries, health, pending, a.state.Silenced(), now)
			fmt.Print(ui.RenderAlerts(alerts))
			return nil
		},
	}
}

func alertsSilenceCommand() *cli.Command {
	return &cli.Command{
		Name:      "silence",
		Usage:     "Silence an alert for a period of time",
		UsageText: "permisync alerts silence [--for 24h] <alert-key>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "for",
				Usage: "How long the alert stays silenced",
				Value: 24 * time.Hour,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return errors.New("silence requires exactly 1 argument: <alert-key>")
			}
			key := args.Get(0)

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			until := time.Now().Add(cmd.Duration("for"))
			if err := a.state.Silence(key, until); err != nil {
				return fmt.Errorf("silence alert: %w", err)
			}
			fmt.Println(ui.StatusSuccess(fmt.Sprintf("alerta %q silenciada hasta %s", key, until.Format("2006-01-02 15:04"))))
			return nil
		},
	}
}
