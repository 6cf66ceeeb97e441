package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ashendes/neurophoto-storefront/internal/app"
	"github.com/ashendes/neurophoto-storefront/internal/catalog"
	"github.com/ashendes/neurophoto-storefront/internal/checkout"
	"github.com/ashendes/neurophoto-storefront/internal/config"
	"github.com/ashendes/neurophoto-storefront/internal/logging"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "storefront",
		Usage: "Browse neuro-photo styles, pay for them over SBP and track orders",
		Commands: []*cli.Command{
			categoriesCommand(),
			stylesCommand(),
			styleCommand(),
			cartCommand(),
			photosCommand(),
			checkoutCommand(),
			ordersCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withApp loads config, wires the storefront and runs fn with a context
// canceled on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Setup(cfg.Log)

		nav := checkout.NavigatorFunc(func(orderID int64) {
			fmt.Printf("Order #%d is paid and your photos are on their way to processing.\n", orderID)
		})
		a, err := app.New(cfg, nav)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fn(ctx, c, a)
	}
}

func idArg(c *cli.Context, what string) (int64, error) {
	raw := c.Args().First()
	if raw == "" {
		return 0, fmt.Errorf("%s id is required", what)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func categoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List style categories",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "include inactive categories"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			categories, err := a.Catalog.Categories(ctx, !c.Bool("all"))
			if err != nil {
				return err
			}
			for _, cat := range categories {
				fmt.Printf("%4d  %s\n", cat.ID, cat.Name)
			}
			return nil
		}),
	}
}

func stylesCommand() *cli.Command {
	return &cli.Command{
		Name:  "styles",
		Usage: "List styles, optionally by category or matching a query",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "category", Usage: "category id"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "filter by name or description"},
			&cli.BoolFlag{Name: "remote", Usage: "run the query as a backend search"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			var (
				styles []models.Style
				err    error
			)
			if c.Bool("remote") {
				styles, err = a.Catalog.Search(ctx, c.String("query"))
			} else {
				styles, err = a.Catalog.Styles(ctx, catalog.Filter{
					CategoryID: c.Int64("category"),
					Query:      c.String("query"),
				})
			}
			if err != nil {
				return err
			}
			for _, st := range styles {
				mark := " "
				if a.Catalog.InCart(st.ID) {
					mark = "*"
				}
				fmt.Printf("%s %4d  %-28s %10s\n", mark, st.ID, st.Name, st.Price.Display())
			}
			return nil
		}),
	}
}

func styleCommand() *cli.Command {
	return &cli.Command{
		Name:      "style",
		Usage:     "Show one style",
		ArgsUsage: "ID",
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			id, err := idArg(c, "style")
			if err != nil {
				return err
			}
			d, err := a.Catalog.Style(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n%s\n", d.Style.Name, d.Style.Price.Display(), d.Style.Description)
			if d.PreviewURL != "" {
				fmt.Println("Preview:", d.PreviewURL)
			}
			if d.InCart {
				fmt.Println("In cart")
			}
			return nil
		}),
	}
}

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "Show and change the cart",
		Action: withApp(func(_ context.Context, _ *cli.Context, a *app.App) error {
			printCart(a)
			return nil
		}),
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "STYLE_ID",
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					id, err := idArg(c, "style")
					if err != nil {
						return err
					}
					d, err := a.Catalog.Style(ctx, id)
					if err != nil {
						return err
					}
					added, err := a.Cart.Add(d.Style)
					if err != nil {
						return err
					}
					if !added {
						fmt.Println("Already in cart")
					}
					printCart(a)
					return nil
				}),
			},
			{
				Name:      "remove",
				ArgsUsage: "STYLE_ID",
				Action: withApp(func(_ context.Context, c *cli.Context, a *app.App) error {
					id, err := idArg(c, "style")
					if err != nil {
						return err
					}
					if _, err := a.Cart.Remove(id); err != nil {
						return err
					}
					printCart(a)
					return nil
				}),
			},
			{
				Name: "clear",
				Action: withApp(func(_ context.Context, _ *cli.Context, a *app.App) error {
					return a.Cart.Clear()
				}),
			},
		},
	}
}

func printCart(a *app.App) {
	items := a.Cart.Items()
	if len(items) == 0 {
		fmt.Println("Cart is empty")
		return
	}
	for _, st := range items {
		fmt.Printf("%4d  %-28s %10s\n", st.ID, st.Name, st.Price.Display())
	}
	fmt.Printf("Total: %s\n", a.Cart.Total().Display())
}

func photosCommand() *cli.Command {
	return &cli.Command{
		Name:  "photos",
		Usage: "Stage up to 3 source photos",
		Action: withApp(func(_ context.Context, _ *cli.Context, a *app.App) error {
			printPhotos(a)
			return nil
		}),
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "FILE...",
				Action: withApp(func(_ context.Context, c *cli.Context, a *app.App) error {
					if c.NArg() == 0 {
						return errors.New("at least one file is required")
					}
					if err := a.Stager.AddFiles(c.Args().Slice()...); err != nil {
						return err
					}
					printPhotos(a)
					return nil
				}),
			},
			{
				Name:      "remove",
				ArgsUsage: "N",
				Action: withApp(func(_ context.Context, c *cli.Context, a *app.App) error {
					n, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("invalid photo number %q", c.Args().First())
					}
					if _, err := a.Stager.Remove(n - 1); err != nil {
						return err
					}
					printPhotos(a)
					return nil
				}),
			},
			{
				Name: "clear",
				Action: withApp(func(_ context.Context, _ *cli.Context, a *app.App) error {
					return a.Stager.Clear()
				}),
			},
			{
				Name:  "submit",
				Usage: "Upload the staged photos now",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "order", Usage: "order id, defaults to the session's active order"},
				},
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					resp, err := a.Submitter.SubmitNow(ctx, c.Int64("order"))
					if err != nil {
						return err
					}
					fmt.Printf("Uploaded %d photo(s)\n", len(resp.Photos))
					return nil
				}),
			},
		},
	}
}

func printPhotos(a *app.App) {
	photos := a.Stager.Photos()
	if len(photos) == 0 {
		fmt.Println("No photos staged")
		return
	}
	for i, p := range photos {
		fmt.Printf("%d. %s (%s)\n", i+1, p.FileName, p.MimeType)
	}
}

func checkoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "checkout",
		Usage: "Create an order for the cart, show the SBP QR code and wait for the payment",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "qr-png", Usage: "also save the QR code to this PNG file"},
			&cli.BoolFlag{Name: "no-wait", Usage: "create the order and exit"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			payment, err := a.Checkout.Resume()
			if err != nil {
				return err
			}
			if payment == nil {
				s := a.Checkout.Summary()
				fmt.Printf("%d style(s), %d photo(s), %d result image(s), total %s\n",
					s.Styles, s.Photos, s.ExpectedResults, s.Total.Display())
				if payment, err = a.Checkout.Start(ctx); err != nil {
					return err
				}
			} else {
				fmt.Printf("Resuming order #%d\n", payment.OrderID)
			}

			qr, err := checkout.RenderQR(payment.QRCodeURL)
			if err != nil {
				return err
			}
			fmt.Println(qr)
			fmt.Println("Open in your bank app:", payment.DeepLink)
			if path := c.String("qr-png"); path != "" {
				if err := checkout.WriteQRPNG(payment.QRCodeURL, path, 512); err != nil {
					return err
				}
			}

			if c.Bool("no-wait") {
				return nil
			}

			fmt.Println("Waiting for payment...")
			err = a.Checkout.Await(ctx)
			switch {
			case errors.Is(err, checkout.ErrPaymentFailed):
				return errors.New("payment failed, the cart is kept so you can try again")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				fmt.Printf("Stopped waiting; run checkout again to resume order #%d\n", payment.OrderID)
				return nil
			}
			return err
		}),
	}
}

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "List your orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "telegram user id, defaults to the init data user"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			user := c.String("user")
			if user == "" {
				user = a.Identity.TelegramUserID
			}
			entries, err := a.History.List(ctx, user)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No orders yet")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("#%-6d %-11s %10s  %s\n", e.Order.ID, e.Badge.Label,
					e.Order.TotalPrice.Display(), strings.Join(e.StyleNames, ", "))
				if len(e.Results) > 0 {
					fmt.Printf("        %d result photo(s) ready\n", len(e.Results))
				}
			}
			return nil
		}),
		Subcommands: []*cli.Command{
			{
				Name:      "download",
				Usage:     "Save the result photos of a completed order",
				ArgsUsage: "ORDER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: ".", Usage: "target directory"},
				},
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					id, err := idArg(c, "order")
					if err != nil {
						return err
					}
					entry, err := a.History.Order(ctx, id)
					if err != nil {
						return err
					}
					paths, err := a.History.DownloadResults(ctx, *entry, c.String("dir"))
					for _, p := range paths {
						fmt.Println(p)
					}
					if err != nil {
						log.WithField("order_id", id).Debug("Download incomplete")
					}
					return err
				}),
			},
		},
	}
}
