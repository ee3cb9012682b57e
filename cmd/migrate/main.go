package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
	"github.com/angelmondragon/tripcrew-backend/pkg/migrate"
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var inv invocation
	flag.StringVar(&inv.command, "cmd", "up", "one of: "+commandNames())
	flag.StringVar(&inv.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&inv.name, "name", "", "slug for -cmd=create")
	flag.StringVar(&inv.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=goto")
	flag.BoolVar(&inv.embedded, "embedded", false, "apply the migrations compiled into the binary (-cmd=up only)")
	flag.Parse()

	cmd, ok := commands[inv.command]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q (want %s)\n", inv.command, commandNames())
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "config.load_failed", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": inv.command,
		"dir": inv.dir,
	})

	if cmd.needsDB {
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "database.unavailable", err)
			os.Exit(1)
		}
		defer client.Close()

		if inv.target, err = openTarget(client); err != nil {
			logg.Error(ctx, "database.unavailable", err)
			os.Exit(1)
		}
		ctx = logg.WithField(ctx, "dialect", inv.target.dialect)
	}

	logg.Info(ctx, "migrate.start")
	if err := cmd.run(ctx, inv, os.Stdout); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.done")
}

func openTarget(client *db.Client) (*target, error) {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql handle: %w", err)
	}
	dialect, err := migrate.DialectFor(client.Driver())
	if err != nil {
		return nil, err
	}
	return &target{db: sqlDB, dialect: dialect}, nil
}
