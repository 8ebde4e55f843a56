// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"codeberg.org/oliverandrich/go-newsletter/internal/config"
	"codeberg.org/oliverandrich/go-newsletter/internal/database"
	"codeberg.org/oliverandrich/go-newsletter/internal/server"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "newsletter",
		Usage:   "Newsletter subscription service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web application",
				Flags:  config.Flags(),
				Action: server.Run,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Flags: config.DatabaseFlags(),
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply all pending migrations", Action: migrate(database.RunMigrations)},
					{Name: "down", Usage: "Roll back the newest migration", Action: migrate(database.MigrateDown)},
					{Name: "reset", Usage: "Roll back all migrations", Action: migrate(database.MigrateReset)},
					{Name: "status", Usage: "Print the schema version", Action: migrate(nil)},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// migrate opens the database without touching the schema, runs step if
// given and prints the resulting schema version.
func migrate(step func(db *sql.DB, driver string) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		dsn := cmd.String("database-dsn")
		driver := database.DriverFor(dsn)

		db, err := database.OpenWithoutMigrations(dsn)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = db.Close() }()

		if step != nil {
			if err := step(db.DB, driver); err != nil {
				return err
			}
		}

		version, err := database.Version(db.DB, driver)
		if err != nil {
			return err
		}
		fmt.Printf("schema version: %d\n", version)
		return nil
	}
}
