package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/vsinha/stockalloc/pkg/domain/repositories"
	"github.com/vsinha/stockalloc/pkg/infrastructure/events"
	sqlrepo "github.com/vsinha/stockalloc/pkg/infrastructure/repositories/sql"
	"github.com/vsinha/stockalloc/pkg/infrastructure/repositories/xlsx"
	"github.com/vsinha/stockalloc/pkg/logger"
)

// SeedCommand replaces the regional stock tables with the stock workbook
type SeedCommand struct {
	config  Config
	logger  *logger.Logger
	journal *events.InMemoryEventStore

	// repo overrides the configured database, for tests
	repo repositories.StockRepository
}

// NewSeedCommand creates a new seed command with the given configuration
func NewSeedCommand(config Config, log *logger.Logger) *SeedCommand {
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	return &SeedCommand{
		config:  config,
		logger:  log.WithRunID(config.RunID).WithComponent("seed_command"),
		journal: events.NewInMemoryEventStore(),
	}
}

// Execute runs the seed command
func (c *SeedCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if c.config.App == nil {
		return fmt.Errorf("validation error: configuration is required")
	}
	app := c.config.App
	if c.repo == nil && app.Database.DSN == "" {
		return fmt.Errorf("validation error: a stock database DSN is required to seed")
	}

	out := c.config.out()
	verbose := app.Report.Verbose
	regions := c.config.regions()

	path := app.Data.Path(app.Stock.Workbook)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("stock workbook not found: %s", path)
	}

	if verbose {
		fmt.Fprintf(out, "🌱 Seeding stock tables from %s\n", path)
	}

	sheets, err := xlsx.NewLoader().LoadStockWorkbook(path, regions)
	if err != nil {
		return fmt.Errorf("error loading stock workbook: %w", err)
	}

	repo := c.repo
	if repo == nil {
		db, err := sqlrepo.Open(ctx, app.Database.Driver, app.Database.DSN, sqlrepo.Options{
			MaxOpenConns:    app.Database.MaxOpenConns,
			ConnMaxLifetime: app.Database.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to open stock database: %w", err)
		}
		defer db.Close()
		repo = sqlrepo.NewStockRepository(db, c.logger)
	}

	for _, sheet := range sheets {
		if err := repo.ReplaceRegionStock(ctx, sheet.Region, sheet.Records); err != nil {
			return fmt.Errorf("failed to seed %s stock: %w", sheet.Region.Name, err)
		}

		event := events.NewStockSeededEvent(c.config.RunID, sheet.Region, len(sheet.Records), sheet.Skipped)
		if err := c.journal.AppendEvent(c.config.RunID, event); err != nil {
			c.logger.Warn().Err(err).Msg("failed to record event")
		}

		c.logger.Info().
			Str("region", sheet.Region.Name).
			Str("table", sheet.Region.StockTable).
			Int("rows", len(sheet.Records)).
			Int("skipped", sheet.Skipped).
			Msg("stock table replaced")

		if verbose {
			fmt.Fprintf(out, "  ✅ %s: %d rows -> %s", sheet.Region.Name, len(sheet.Records), sheet.Region.StockTable)
			if sheet.Skipped > 0 {
				fmt.Fprintf(out, " (%d skipped)", sheet.Skipped)
			}
			fmt.Fprintln(out)
		}
	}

	c.logger.Info().
		Int("tables", c.journal.CountByType(c.config.RunID, events.StockSeededEvent)).
		Msg("stock seeding complete")

	if verbose {
		fmt.Fprintln(out, "🏁 Stock seeding complete!")
	}

	return nil
}

// showHelp displays the help message
func (c *SeedCommand) showHelp() {
	fmt.Fprintf(c.config.out(), `Stock Allocation CLI - seed the regional stock tables

USAGE:
    stockalloc seed [options]

OPTIONS:
    -config <file>      Path to a YAML config file
    -data <dir>         Directory holding the stock workbook (default: Data)
    -workbook <file>    Stock workbook with one "<Region> Data" sheet per region (default: SQL Data.xlsx)
    -driver <name>      Stock database driver: mysql, postgres, sqlite
    -dsn <dsn>          Stock database DSN
    -verbose            Enable verbose output
    -help               Show this help message

Each sheet needs the columns MODI_ SKU, Scancode, MRP and Stock. Every region
table is replaced inside one transaction.
`)
}
