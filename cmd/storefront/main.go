package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const appID = "storefront"

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env file")
	}

	app := &cli.App{
		Name:  appID,
		Usage: "online store order, payment and fulfillment service",
		Commands: []*cli.Command{
			serviceCommand(),
			migrateCommand(),
			tokenCommand(),
			grantRoleCommand(),
			cartCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront failed")
	}
}
