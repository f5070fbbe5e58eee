package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/pkg/storefront/domain/model"
	"storefront/pkg/storefront/infrastructure/mysql"
	"storefront/pkg/storefront/infrastructure/transport"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a bearer token for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "user id"},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (defaults to STOREFRONT_TOKEN_TTL)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := parseEnv()
			if err != nil {
				return err
			}
			if err := cfg.requireJWTSecret(); err != nil {
				return err
			}
			userID, err := uuid.Parse(c.String("user"))
			if err != nil {
				return errors.Wrap(err, "invalid user id")
			}
			ttl := cfg.TokenTTL
			if c.IsSet("ttl") {
				ttl = c.Duration("ttl")
			}

			token, err := transport.NewAuthenticator([]byte(cfg.JWTSecret)).Issue(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func grantRoleCommand() *cli.Command {
	roles := []string{string(model.RoleAdmin), string(model.RoleVendor), string(model.RoleModerator), string(model.RoleDelivery)}
	return &cli.Command{
		Name:  "grant-role",
		Usage: "register a user and grant a role",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "user id"},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "role", Required: true, Usage: fmt.Sprintf("one of %v", roles)},
		},
		Action: func(c *cli.Context) error {
			userID, err := uuid.Parse(c.String("user"))
			if err != nil {
				return errors.Wrap(err, "invalid user id")
			}
			role := model.Role(c.String("role"))
			if !validRole(role, roles) {
				return errors.Errorf("unknown role %q", role)
			}

			cfg, err := parseEnv()
			if err != nil {
				return err
			}
			ctx := c.Context
			db, err := mysql.Open(ctx, cfg.dsn())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := mysql.GrantRole(ctx, db, userID, c.String("email"), role); err != nil {
				return err
			}
			log.WithFields(log.Fields{"user": userID, "role": role, "at": time.Now().UTC()}).Info("role granted")
			return nil
		},
	}
}

func validRole(role model.Role, roles []string) bool {
	for _, r := range roles {
		if string(role) == r {
			return true
		}
	}
	return false
}
