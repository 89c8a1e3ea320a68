package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

var version = "dev"

// loadConfig reads the config file (optional) and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Flags win over the file.
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if v := cmd.String("output"); v != "" {
		cfg.Output.Path = v
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type entrypoint func(ctx context.Context, opts ...internal.Option) error

func action(run entrypoint, extra func(cmd *cli.Command) []internal.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}
		if extra != nil {
			opts = append(opts, extra(cmd)...)
		}

		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "ansuz",
		Usage:   "Compile a Markdown vault with wiki-links and media embeds into a static site",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("ANSUZ_VAULT"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (overrides output.path)",
				Sources: cli.EnvVars("ANSUZ_OUTPUT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Compile the vault once",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Exit non-zero when the build reports diagnostics or failed documents",
					},
				},
				Action: action(internal.Build, func(cmd *cli.Command) []internal.Option {
					return []internal.Option{internal.WithStrict(cmd.Bool("strict"))}
				}),
			},
			{
				Name:   "watch",
				Usage:  "Compile the vault and rebuild on every change",
				Action: action(internal.Watch, nil),
			},
			{
				Name:  "serve",
				Usage: "Compile, watch and serve the site with a read-only API",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port (overrides app.http.port)",
						Sources: cli.EnvVars("APP_HTTP_PORT"),
					},
				},
				Action: action(internal.Serve, nil),
			},
			{
				Name:   "mcp",
				Usage:  "Compile the vault and serve build results over MCP (stdio)",
				Action: action(internal.MCP, nil),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
