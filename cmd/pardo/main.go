// Pardo promo-card generator.
//
// Usage:
//   pardo products --feed 1234
//   pardo render --feed <url|cluster-id> --sku ABC123 --out card.jpg
//   pardo batch --feed <url|cluster-id> --out-dir ./cards
//   pardo serve --addr :8081
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"pardo/card"
	"pardo/internal/browser"
	"pardo/internal/server"
	"pardo/pkg/config"
	"pardo/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "pardo",
		Usage: "Render product feeds into fixed-size promotional card images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PARDO_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "env",
				Value:   config.GetEnv("PARDO_ENV", "dev"),
				Usage:   "Environment (dev, prod)",
				EnvVars: []string{"PARDO_ENV"},
			},
			&cli.BoolFlag{
				Name:    "browser",
				Usage:   "Add a headless-browser fallback transport strategy",
				EnvVars: []string{"PARDO_BROWSER_FALLBACK"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Init("pardo", c.String("env"), c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			productsCommand(),
			renderCommand(),
			batchCommand(),
			serveCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func feedFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "feed",
		Usage:    "Feed URL or bare numeric cluster id",
		Required: true,
	}
}

func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "frame", Value: card.DefaultRenderConfig().FrameColor, Usage: "Frame hex color"},
		&cli.BoolFlag{Name: "no-price", Usage: "Hide the price block"},
		&cli.BoolFlag{Name: "no-badges", Usage: "Hide all badges"},
		&cli.StringFlag{Name: "bank", Value: card.DefaultRenderConfig().BankText, Usage: "Default bank promo text"},
	}
}

func renderConfigFromFlags(c *cli.Context) card.RenderConfig {
	cfg := card.DefaultRenderConfig()
	cfg.FrameColor = c.String("frame")
	cfg.ShowPrice = !c.Bool("no-price")
	cfg.ShowBadges = !c.Bool("no-badges")
	cfg.BankText = c.String("bank")
	return cfg
}

func newFetcher(c *cli.Context) (*card.Fetcher, func()) {
	f := card.NewFetcher()
	cleanup := func() {}
	if c.Bool("browser") {
		b := browser.New(logger.S())
		f.Strategies = append(f.Strategies, b.Strategy())
		cleanup = b.Close
	}
	return f, cleanup
}

func loadFeed(c *cli.Context) ([]card.Product, error) {
	fetcher, cleanup := newFetcher(c)
	defer cleanup()
	body, source, err := fetcher.Fetch(c.Context, c.String("feed"))
	if err != nil {
		return nil, err
	}
	logger.S().Infow("feed fetched", "source", source, "bytes", len(body))
	return card.Normalize(body)
}

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "Fetch a feed and list its normalized products",
		Flags: []cli.Flag{feedFlag()},
		Action: func(c *cli.Context) error {
			products, err := loadFeed(c)
			if err != nil {
				return err
			}
			for _, p := range products {
				fmt.Printf("%-16s %-48s %12s  %2dx  %s\n",
					p.SKU, truncate(p.Name, 48), card.FormatMoney(p.Price), p.Installments, p.ID)
			}
			fmt.Printf("%d products\n", len(products))
			return nil
		},
	}
}

func renderCommand() *cli.Command {
	flags := append([]cli.Flag{
		feedFlag(),
		&cli.StringFlag{Name: "sku", Usage: "Product SKU or id (default: first product)"},
		&cli.StringFlag{Name: "out", Usage: "Output file (default: pardo_<sku>.jpg)"},
	}, renderFlags()...)
	return &cli.Command{
		Name:  "render",
		Usage: "Render one product into a promotional card",
		Flags: flags,
		Action: func(c *cli.Context) error {
			products, err := loadFeed(c)
			if err != nil {
				return err
			}
			product := products[0]
			if sku := c.String("sku"); sku != "" {
				found := false
				for _, p := range products {
					if p.SKU == sku || p.ID == sku {
						product, found = p, true
						break
					}
				}
				if !found {
					return fmt.Errorf("sku %q not in feed", sku)
				}
			}
			img := card.Render(c.Context, product, renderConfigFromFlags(c), card.NewImageLoader())
			out := c.String("out")
			if out == "" {
				out = card.ExportFilename(product)
			}
			if err := os.WriteFile(out, card.EncodeJPEG(img), 0o644); err != nil {
				return err
			}
			logger.S().Infow("card written", "file", out, "sku", product.SKU)
			return nil
		},
	}
}

func batchCommand() *cli.Command {
	flags := append([]cli.Flag{
		feedFlag(),
		&cli.StringFlag{Name: "out-dir", Value: "cards", Usage: "Output directory"},
	}, renderFlags()...)
	return &cli.Command{
		Name:  "batch",
		Usage: "Render every product in the feed, one card per product",
		Flags: flags,
		Action: func(c *cli.Context) error {
			products, err := loadFeed(c)
			if err != nil {
				return err
			}
			outDir := c.String("out-dir")
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			export := func(name string, data []byte) error {
				return os.WriteFile(filepath.Join(outDir, name), data, 0o644)
			}
			count, err := card.RunBatch(c.Context, products, renderConfigFromFlags(c),
				card.NewImageLoader(), export, card.DefaultBatchOptions())
			if err != nil {
				return err
			}
			fmt.Printf("%d cards written to %s\n", count, outDir)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Expose the pipeline over HTTP (/feed, /card, /batch, /metrics)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8081",
				Usage:   "listen address, e.g. :8081",
				EnvVars: []string{"PARDO_ADDR"},
			},
		},
		Action: func(c *cli.Context) error {
			fetcher, cleanup := newFetcher(c)
			defer cleanup()
			handler := server.New(server.Config{
				Fetcher: fetcher,
				Loader:  card.NewImageLoader(),
				Logger:  logger.L(),
				OutDir:  config.GetEnv("PARDO_OUT_DIR", "out"),
			})
			addr := c.String("addr")
			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      2 * time.Minute,
				IdleTimeout:       60 * time.Second,
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.S().Infow("listening", "addr", addr)
			return srv.Serve(ln)
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
