// Command heatbot runs the heating inquiry bot.
package main

import (
	"context"
	"log"
	"os"

	"github.com/m3rciful/heatbot/core/bootstrap"
	corecmd "github.com/m3rciful/heatbot/core/cmd"
	coreconfig "github.com/m3rciful/heatbot/core/config"
	"github.com/m3rciful/heatbot/internal/bot"
	"github.com/m3rciful/heatbot/internal/stats"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		EnvFiles:          []string{".env"},
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			core := cfg.CoreConfig()
			res, err := bootstrap.Run(ctx, bootstrap.Options{
				Config:        core,
				Migrations:    stats.Migrations,
				MigrationsDir: stats.MigrationsDir,
			})
			if err != nil {
				return nil, err
			}
			app, err := bot.NewApp(ctx, core, res.DB)
			if err != nil {
				_ = res.Close()
				return nil, err
			}
			return app, nil
		},
	})
	if err != nil {
		log.Printf("heatbot: %v", err)
		os.Exit(1)
	}
}
