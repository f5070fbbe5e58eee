package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"storefront/pkg/storefront/client/sessionstore"
)

var sessionFlag = &cli.StringFlag{Name: "file", Value: "session.json", Usage: "client session file"}

var productFlag = &cli.StringFlag{Name: "product", Required: true, Usage: "product id"}

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "edit the local client session (cart and wishlist)",
		Flags: []cli.Flag{sessionFlag},
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Flags: []cli.Flag{productFlag, &cli.IntFlag{Name: "quantity", Value: 1}},
				Action: withSession(func(c *cli.Context, session *sessionstore.Session) error {
					productID, err := parseProduct(c)
					if err != nil {
						return err
					}
					return session.AddToCart(productID, c.Int("quantity"))
				}),
			},
			{
				Name:  "remove",
				Flags: []cli.Flag{productFlag},
				Action: withSession(func(c *cli.Context, session *sessionstore.Session) error {
					productID, err := parseProduct(c)
					if err != nil {
						return err
					}
					if !session.RemoveFromCart(productID) {
						return errors.Errorf("product %s is not in the cart", productID)
					}
					return nil
				}),
			},
			{
				Name:  "wish",
				Usage: "add a product to the wishlist or remove it",
				Flags: []cli.Flag{productFlag},
				Action: withSession(func(c *cli.Context, session *sessionstore.Session) error {
					productID, err := parseProduct(c)
					if err != nil {
						return err
					}
					if session.ToggleWishlist(productID) {
						fmt.Fprintln(c.App.Writer, "added to wishlist")
					} else {
						fmt.Fprintln(c.App.Writer, "removed from wishlist")
					}
					return nil
				}),
			},
			{
				Name: "list",
				Action: func(c *cli.Context) error {
					session, err := sessionstore.Load(c.String(sessionFlag.Name))
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "PRODUCT\tQUANTITY")
					for _, line := range session.Cart {
						fmt.Fprintf(w, "%s\t%d\n", line.ProductID, line.Quantity)
					}
					for _, id := range session.Wishlist {
						fmt.Fprintf(w, "%s\twishlist\n", id)
					}
					return w.Flush()
				},
			},
		},
	}
}

// withSession loads the session before action and saves it afterwards.
func withSession(action func(c *cli.Context, session *sessionstore.Session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		path := c.String(sessionFlag.Name)
		session, err := sessionstore.Load(path)
		if err != nil {
			return err
		}
		if err := action(c, session); err != nil {
			return err
		}
		return sessionstore.Save(path, session)
	}
}

func parseProduct(c *cli.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String(productFlag.Name))
	return id, errors.Wrap(err, "invalid product id")
}
