package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/permisync/internal/config"
	"github.com/klauern/permisync/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display or initialize the configuration",
		Commands: []*cli.Command{
			configShowCommand(),
			configInitCommand(),
		},
	}
}

func configShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Display the active configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			var cfg *config.Config
			var err error
			if path != "" {
				cfg, err = config.LoadFromPath(path)
			} else {
				path = config.FilePath()
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			fmt.Println(ui.SectionTitle("configuración"))
			fmt.Println()
			fmt.Println(ui.Dim("archivo: " + path))
			fmt.Printf("  hoja de cálculo: %s\n", orUnset(cfg.Remote.SpreadsheetID))
			fmt.Printf("  pestaña: %s\n", orUnset(cfg.Remote.Worksheet))
			fmt.Printf("  credenciales: %s\n", orUnset(cfg.Remote.CredentialsPath))
			fmt.Printf("  base de datos: %s\n", cfg.Storage.DatabasePath)
			fmt.Printf("  historial: %s\n", cfg.Storage.HistoryDir)
			fmt.Printf("  intentos: %d (espera inicial %s, multiplicador %.1f)\n",
				cfg.Sync.MaxAttempts, cfg.Sync.InitialBackoff, cfg.Sync.BackoffMultiplier)
			fmt.Printf("  tiempo límite por intento: %s\n", cfg.Sync.Timeout)
			if cfg.State.LastSyncAt != "" {
				fmt.Printf("  última sincronización: %s\n", cfg.State.LastSyncAt)
			}
			return nil
		},
	}
}

func configInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default configuration file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if config.Exists() && !cmd.Bool("force") {
				return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", config.FilePath())
			}
			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("write configuration: %w", err)
			}
			fmt.Println(ui.StatusSuccess("configuración creada en " + config.FilePath()))
			return nil
		},
	}
}

func orUnset(v string) string {
	if v == "" {
		return ui.Dim("(sin configurar)")
	}
	return v
}
