package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/export"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export local leave requests to JSON, YAML, or CSV",
		UsageText: "permisync export [--format json|yaml|csv] [--output file]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, yaml, or csv",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "delegada",
				Usage: "Only export requests for this delegate",
			},
			&cli.StringFlag{
				Name:  "estado",
				Usage: "Only export requests in this state",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.local.ChangedSince(ctx, "")
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if path := cmd.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			exporter := export.New(export.Options{
				Format:   format,
				Pretty:   true,
				Delegada: cmd.String("delegada"),
				Estado:   cmd.String("estado"),
			})
			return exporter.Export(records, w)
		},
	}
}
