// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// A missing .env is fine; the environment and config.toml still apply.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:   "scamsentinel",
		Usage:  "Community scam reporting platform",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web application",
				Action: server.Run,
			},
			migrateCommand(),
			adminCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
