// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/database"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/server"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/auth"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/email"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
	"golang.org/x/term"
)

// withDB opens the database for a maintenance command. Open applies pending
// migrations.
func withDB(cmd *cli.Command, fn func(db *sqlx.DB) error) error {
	server.SetupLogger(cmd.String("log-level"), cmd.String("log-format"))

	db, err := database.Open(cmd.String("database-driver"), cmd.String("database-dsn"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	return fn(db)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage database migrations",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withDB(cmd, database.RunMigrations)
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the latest migration",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withDB(cmd, database.MigrateDown)
				},
			},
			{
				Name:  "reset",
				Usage: "Roll back all migrations",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withDB(cmd, database.MigrateReset)
				},
			},
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return withDB(cmd, func(db *sqlx.DB) error {
						version, err := database.MigrationVersion(db)
						if err != nil {
							return err
						}
						fmt.Fprintf(cmd.Root().Writer, "schema version: %d\n", version)
						return nil
					})
				},
			},
		},
	}
}

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Manage administrator accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a verified administrator",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Password (prompted when empty)",
						Sources: cli.EnvVars("ADMIN_PASSWORD"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					password := cmd.String("password")
					if password == "" {
						var err error
						if password, err = promptPassword(); err != nil {
							return err
						}
					}

					return withDB(cmd, func(db *sqlx.DB) error {
						user, err := adminService(db).CreateAdmin(ctx, cmd.String("username"), cmd.String("email"), password)
						if err != nil {
							return err
						}
						fmt.Fprintf(cmd.Root().Writer, "created admin %s (id %d)\n", user.Username, user.ID)
						return nil
					})
				},
			},
			setAdminCommand("promote", "Grant admin rights to a user", true),
			setAdminCommand("demote", "Revoke admin rights from a user", false),
		},
	}
}

func setAdminCommand(name, usage string, isAdmin bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<email>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr := cmd.Args().First()
			if addr == "" {
				return errors.New("email argument is required")
			}
			return withDB(cmd, func(db *sqlx.DB) error {
				if err := adminService(db).SetAdmin(ctx, addr, isAdmin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "%s: %s\n", name, addr)
				return nil
			})
		},
	}
}

// adminService builds an auth service for account maintenance. No mail is
// sent from the command line.
func adminService(db *sqlx.DB) *auth.Service {
	return auth.NewService(repository.New(db), &config.RegistrationConfig{}, email.NewServiceWithSender(email.LogSender{}))
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password given and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(password)), nil
}
