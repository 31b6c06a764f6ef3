package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/vsinha/stockalloc/pkg/config"
	"github.com/vsinha/stockalloc/pkg/interfaces/cli/commands"
	"github.com/vsinha/stockalloc/pkg/logger"
)

// command is implemented by every CLI subcommand
type command interface {
	Execute(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	args := os.Args[1:]
	name := "report"
	if len(args) > 0 && args[0] == "seed" {
		name, args = "seed", args[1:]
	}

	if err := run(name, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	// Command line flags
	var (
		configFile = fs.String("config", "", "Path to a YAML config file")
		dataDir    = fs.String("data", "", "Directory holding the daily reports")
		outputPath = fs.String("output", "", "Output workbook path")
		source     = fs.String("stock", "", "Stock source: database, workbook")
		workbook   = fs.String("workbook", "", "Stock workbook, relative to the data directory")
		driver     = fs.String("driver", "", "Stock database driver: mysql, postgres, sqlite")
		dsn        = fs.String("dsn", "", "Stock database DSN")
		format     = fs.String("format", "", "Summary format: text, json")
		parallel   = fs.Bool("parallel", false, "Allocate regions concurrently")
		verbose    = fs.Bool("verbose", false, "Enable verbose output")
		help       = fs.Bool("help", false, "Show help message")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags override the file and environment only when given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data.Dir = *dataDir
		case "output":
			cfg.Report.OutputPath = *outputPath
		case "stock":
			cfg.Stock.Source = *source
		case "workbook":
			cfg.Stock.Workbook = *workbook
		case "driver":
			cfg.Database.Driver = *driver
		case "dsn":
			cfg.Database.DSN = *dsn
		case "format":
			cfg.Report.Format = *format
		case "parallel":
			cfg.Report.Parallel = *parallel
		case "verbose":
			cfg.Report.Verbose = *verbose
		}
	})

	runID := uuid.NewString()
	log := logger.New("stockalloc", cfg.Environment, cfg.LogLevel)

	cmdConfig := commands.Config{
		App:   cfg,
		RunID: runID,
		Help:  *help,
	}

	var cmd command
	if name == "seed" {
		cmd = commands.NewSeedCommand(cmdConfig, log)
	} else {
		cmd = commands.NewReportCommand(cmdConfig, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.Execute(ctx)
}
