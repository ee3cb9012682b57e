package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/angelmondragon/tripcrew-backend/pkg/migrate"
)

type target struct {
	db      *sql.DB
	dialect string
}

type invocation struct {
	command  string
	dir      string
	name     string
	version  string
	embedded bool
	target   *target
}

type command struct {
	needsDB bool
	run     func(ctx context.Context, inv invocation, out io.Writer) error
}

var commands = map[string]command{
	"create":   {run: runCreate},
	"validate": {run: runValidate},
	"up":       {needsDB: true, run: runUp},
	"down":     {needsDB: true, run: gooseCommand("down")},
	"status":   {needsDB: true, run: gooseCommand("status")},
	"current":  {needsDB: true, run: runCurrent},
	"goto":     {needsDB: true, run: runGoto},
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func runCreate(_ context.Context, inv invocation, out io.Writer) error {
	if inv.name == "" {
		return errors.New("-name is required")
	}
	path, err := migrate.CreateSQLMigration(inv.dir, inv.name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "created", path)
	return err
}

func runValidate(_ context.Context, inv invocation, out io.Writer) error {
	if err := migrate.ValidateDir(inv.dir); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "migrations ok:", inv.dir)
	return err
}

func runUp(ctx context.Context, inv invocation, out io.Writer) error {
	if inv.embedded {
		return migrate.UpEmbedded(ctx, inv.target.db, inv.target.dialect)
	}
	return gooseCommand("up")(ctx, inv, out)
}

func runCurrent(ctx context.Context, inv invocation, out io.Writer) error {
	version, err := migrate.CurrentVersion(ctx, inv.target.db, inv.target.dialect)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, version)
	return err
}

func runGoto(ctx context.Context, inv invocation, _ io.Writer) error {
	if inv.version == "" {
		return errors.New("-version is required")
	}
	return migrate.MigrateToVersion(ctx, inv.target.db, inv.target.dialect, inv.dir, inv.version)
}

func gooseCommand(name string) func(context.Context, invocation, io.Writer) error {
	return func(ctx context.Context, inv invocation, _ io.Writer) error {
		return migrate.Run(ctx, inv.target.db, inv.target.dialect, inv.dir, name)
	}
}
