package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"

	"portfolio_tracker/internal/infrastructure/renderer"
	"portfolio_tracker/internal/infrastructure/restapi"
)

type runCmd struct {
	config configFlag
	plain  bool
	watch  int
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "value the portfolio once and print the report" }
func (*runCmd) Usage() string {
	return `tracker run [-config <path>] [-plain] [-w n]

  Fetches balances and prices, records a snapshot when one is due and prints
  the valuation with profit/loss since the first and last snapshot.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	c.config.register(f.StringVar)
	f.BoolVar(&c.plain, "plain", false, "print raw markdown instead of rendering it")
	f.IntVar(&c.watch, "w", 0, "run every n seconds")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(c.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		report, err := a.portfolioService.RunCycle(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if c.watch == 0 {
				return subcommands.ExitFailure
			}
		} else {
			if c.watch > 0 {
				fmt.Println("\033[2J")
			}
			printMarkdown(renderer.RenderPortfolio(report), c.plain)
		}

		if c.watch <= 0 {
			return subcommands.ExitSuccess
		}
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case <-time.After(time.Duration(c.watch) * time.Second):
		}
	}
}

type historyCmd struct {
	config configFlag
	plain  bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list recorded snapshot batches" }
func (*historyCmd) Usage() string {
	return `tracker history [-config <path>] [-plain]

  Prints every snapshot batch in the store, most recent first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.config.register(f.StringVar)
	f.BoolVar(&c.plain, "plain", false, "print raw markdown instead of rendering it")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(c.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()

	history, err := a.portfolioService.History(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderHistory(history), c.plain)
	return subcommands.ExitSuccess
}

type serveCmd struct {
	config configFlag
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the portfolio over HTTP" }
func (*serveCmd) Usage() string {
	return `tracker serve [-config <path>]

  Starts the HTTP API. Every GET /api/v1/portfolio runs a valuation cycle.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	c.config.register(f.StringVar)
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(c.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer a.close()

	if !a.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewPortfolioHandler(a.portfolioService, a.logger)
	router := restapi.SetupRouter(handler, a.cfg.Server.AllowedOrigins, a.zapLogger)

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-serveErr:
		if ok {
			a.logger.Error("HTTP server failed", "error", err)
			return subcommands.ExitFailure
		}
	case <-quit:
		a.logger.Info("Shutting down HTTP server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server forced to shutdown", "error", err)
		return subcommands.ExitFailure
	}
	a.logger.Info("HTTP server stopped")
	return subcommands.ExitSuccess
}

func printMarkdown(md string, plain bool) {
	if plain {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
