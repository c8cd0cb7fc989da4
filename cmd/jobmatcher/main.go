package main

import (
	"context"
	"fmt"
	"os"

	"JobMatcher/internal/app"
	"JobMatcher/internal/config"
	"JobMatcher/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "run":
		report, err := application.Run(ctx)
		if err != nil {
			logger.Error("run failed", "run_id", report.RunID, "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := application.Serve(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			os.Exit(1)
		}
	case "match":
		matches, err := application.Match(ctx, os.Args[2:], 0)
		if err != nil {
			logger.Error("match failed", "error", err)
			os.Exit(1)
		}
		if len(matches) == 0 {
			fmt.Println("no matches")
			return
		}
		for _, m := range matches {
			fmt.Printf("%.3f  %s | %s | %s\n  %s\n", m.Score, m.Title, m.Company, m.Location, m.URL)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [run|serve|match skill...]\n", os.Args[0])
		os.Exit(2)
	}
}
