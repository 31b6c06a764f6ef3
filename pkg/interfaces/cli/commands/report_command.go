package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/stockalloc/pkg/application/dto"
	"github.com/vsinha/stockalloc/pkg/application/services"
	"github.com/vsinha/stockalloc/pkg/config"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/vsinha/stockalloc/pkg/domain/repositories"
	"github.com/vsinha/stockalloc/pkg/infrastructure/events"
	"github.com/vsinha/stockalloc/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/stockalloc/pkg/infrastructure/repositories/memory"
	sqlrepo "github.com/vsinha/stockalloc/pkg/infrastructure/repositories/sql"
	"github.com/vsinha/stockalloc/pkg/infrastructure/repositories/xlsx"
	"github.com/vsinha/stockalloc/pkg/interfaces/cli/output"
	"github.com/vsinha/stockalloc/pkg/logger"
)

// Config holds configuration shared by the CLI commands
type Config struct {
	App     *config.Config
	RunID   string
	Regions []entities.Region
	Out     io.Writer
	Help    bool
}

func (c *Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Config) regions() []entities.Region {
	if len(c.Regions) == 0 {
		return entities.DefaultRegions()
	}
	return c.Regions
}

// Input file labels, in the order they are printed
const (
	InputShipments     = "Shipments"
	InputSaleInventory = "Sale & Inventory"
	InputViability     = "Viability"
	InputOrders        = "All Orders"
	InputB2C           = "GST MTR B2C"
	InputB2B           = "GST MTR B2B"
	InputStockWorkbook = "Stock Workbook"
)

// ReportCommand runs the daily allocation report
type ReportCommand struct {
	config  Config
	logger  *logger.Logger
	journal *events.InMemoryEventStore
}

// NewReportCommand creates a new report command with the given configuration
func NewReportCommand(config Config, log *logger.Logger) *ReportCommand {
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	return &ReportCommand{
		config:  config,
		logger:  log.WithRunID(config.RunID).WithComponent("report_command"),
		journal: events.NewInMemoryEventStore(),
	}
}

// Execute runs the report command
func (c *ReportCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	app := c.config.App
	verbose := app.Report.Verbose
	out := c.config.out()
	regions := c.config.regions()

	files, err := c.resolveInputFiles()
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	if verbose {
		c.printHeader(files)
	}

	c.record(events.NewRunStartedEvent(c.config.RunID, events.RunStarted{
		DataDir:  app.Data.Dir,
		Regions:  regionNames(regions),
		Parallel: app.Report.Parallel,
	}))

	if verbose {
		fmt.Fprintln(out, "📂 Loading daily reports...")
	}

	startTime := time.Now()

	inputs, err := c.loadInputs(files)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(out, "✅ Data loaded successfully:\n")
		fmt.Fprintf(out, "  Shipments: %d\n", len(inputs.Shipments))
		fmt.Fprintf(out, "  Billed Shipments: %d\n", len(inputs.Billed))
		fmt.Fprintf(out, "  Viability Rows: %d\n", len(inputs.Viability))
		fmt.Fprintf(out, "  B2C States: %d\n", len(inputs.ShipTo))
		fmt.Fprintf(out, "  B2B States: %d\n", len(inputs.BillTo))
		fmt.Fprintf(out, "  Order Lines: %d\n", len(inputs.Orders))
		fmt.Fprintln(out)
	}

	builder := services.NewTableBuilder(regions, app.Data.ExcludedFCs)
	shipments, stats := builder.BuildShipments(inputs)

	c.record(events.NewShipmentsBuiltEvent(c.config.RunID, events.ShipmentsBuilt{
		Shipments:       len(shipments),
		BilledRemoved:   stats.Billed,
		ExcludedRemoved: stats.Excluded,
	}))
	c.logger.Info().
		Int("input", stats.Input).
		Int("excluded", stats.Excluded).
		Int("billed", stats.Billed).
		Int("missing_key", stats.MissingKey).
		Int("shipments", len(shipments)).
		Msg("shipment table built")

	if verbose {
		fmt.Fprintf(out, "🧮 Shipment table: %d rows (%d excluded, %d already billed)\n\n",
			len(shipments), stats.Excluded, stats.Billed)
	}

	stock, closeStock, err := c.openStock(ctx, files, regions)
	if err != nil {
		return err
	}
	defer closeStock()

	if verbose {
		fmt.Fprintf(out, "🔄 Allocating stock across %d regions...\n", len(regions))

		printer := progressPrinter(out)
		if err := c.journal.Subscribe(printer.Types, printer); err != nil {
			c.logger.Warn().Err(err).Msg("failed to subscribe progress printer")
		}
		defer func() { _ = c.journal.Unsubscribe(printer) }()
	}

	service := services.NewReportService(
		services.ReportConfig{
			Parallel:     app.Report.Parallel,
			FetchTimeout: app.Database.QueryTimeout,
		},
		regions,
		stock,
		builder,
		c.journal,
		c.logger,
	)

	report, err := service.Run(ctx, c.config.RunID, shipments)
	if err != nil {
		return fmt.Errorf("error running allocation: %w", err)
	}

	path := app.OutputPath()
	sheets, err := output.WriteWorkbook(report, path)
	if err != nil {
		return fmt.Errorf("error exporting workbook: %w", err)
	}
	report.OutputPath = path
	c.record(events.NewReportExportedEvent(c.config.RunID, path, sheets))
	report.Journal = c.journalEntries()

	elapsed := time.Since(startTime)
	c.logger.Info().
		Str("path", path).
		Int("errors", len(report.Errors)).
		Int("shortages", c.journal.CountByType(c.config.RunID, events.ShortageDetectedEvent)).
		Int("fetch_failures", c.journal.CountByType(c.config.RunID, events.StockFetchFailedEvent)).
		Dur("elapsed", elapsed).
		Msg("report exported")

	if verbose {
		fmt.Fprintf(out, "✅ Allocation completed in %v\n\n", elapsed.Round(time.Millisecond))
	}

	err = output.Generate(out, report, output.Config{
		Format:     app.Report.Format,
		Verbose:    verbose,
		Elapsed:    elapsed,
		InputFiles: files,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if verbose {
		fmt.Fprintln(out, "🏁 Stock allocation complete!")
	}

	return nil
}

// validateInputs validates the command configuration
func (c *ReportCommand) validateInputs() error {
	if c.config.App == nil {
		return fmt.Errorf("configuration is required")
	}
	return c.config.App.Validate()
}

// resolveInputFiles determines the actual file paths to use. The GST reports
// are optional; every other report must exist.
func (c *ReportCommand) resolveInputFiles() (map[string]string, error) {
	data := c.config.App.Data

	files := map[string]string{
		InputShipments:     data.Path(data.ShipmentsFile),
		InputSaleInventory: data.Path(data.SaleInventoryFile),
		InputViability:     data.Path(data.ViabilityFile),
		InputOrders:        data.Path(data.OrdersFile),
	}
	if c.config.App.Stock.Source == config.StockSourceWorkbook {
		files[InputStockWorkbook] = data.Path(c.config.App.Stock.Workbook)
	}

	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file not found: %s", name, path)
		}
	}

	for name, pattern := range map[string]string{InputB2C: data.B2CPattern, InputB2B: data.B2BPattern} {
		path, found, err := csv.FindFirst(data.Dir, pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern: %w", name, err)
		}
		if !found {
			c.logger.Warn().Str("pattern", pattern).Msgf("%s report not found, continuing without it", name)
			continue
		}
		files[name] = path
	}

	return files, nil
}

// loadInputs parses every daily report into the table builder inputs
func (c *ReportCommand) loadInputs(files map[string]string) (services.TableInputs, error) {
	csvLoader := csv.NewLoader()
	xlsxLoader := xlsx.NewLoader()

	var (
		in  services.TableInputs
		err error
	)

	if in.Shipments, err = csvLoader.LoadShipments(files[InputShipments]); err != nil {
		return in, fmt.Errorf("error loading shipments: %w", err)
	}
	if in.Billed, err = xlsxLoader.LoadBilledShipments(files[InputSaleInventory]); err != nil {
		return in, fmt.Errorf("error loading billed shipments: %w", err)
	}
	if in.Viability, err = xlsxLoader.LoadViability(files[InputViability]); err != nil {
		return in, fmt.Errorf("error loading viability sheet: %w", err)
	}
	if in.Orders, err = csvLoader.LoadOrders(files[InputOrders]); err != nil {
		return in, fmt.Errorf("error loading orders: %w", err)
	}
	if path, ok := files[InputB2C]; ok {
		if in.ShipTo, err = csvLoader.LoadStates(path, csv.ColShipToState); err != nil {
			return in, fmt.Errorf("error loading B2C report: %w", err)
		}
	}
	if path, ok := files[InputB2B]; ok {
		if in.BillTo, err = csvLoader.LoadStates(path, csv.ColBillToState); err != nil {
			return in, fmt.Errorf("error loading B2B report: %w", err)
		}
	}

	return in, nil
}

// openStock returns the configured stock source and a function releasing it
func (c *ReportCommand) openStock(ctx context.Context, files map[string]string, regions []entities.Region) (repositories.StockRepository, func(), error) {
	app := c.config.App

	if app.Stock.Source == config.StockSourceWorkbook {
		repo, err := loadStockWorkbook(ctx, files[InputStockWorkbook], regions)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}

	db, err := sqlrepo.Open(ctx, app.Database.Driver, app.Database.DSN, sqlrepo.Options{
		MaxOpenConns:    app.Database.MaxOpenConns,
		ConnMaxLifetime: app.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stock database: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close stock database")
		}
	}
	return sqlrepo.NewStockRepository(db, c.logger), closeDB, nil
}

// loadStockWorkbook reads the regional stock workbook into an in-memory repository
func loadStockWorkbook(ctx context.Context, path string, regions []entities.Region) (*memory.StockRepository, error) {
	sheets, err := xlsx.NewLoader().LoadStockWorkbook(path, regions)
	if err != nil {
		return nil, fmt.Errorf("error loading stock workbook: %w", err)
	}

	repo := memory.NewStockRepository()
	for _, sheet := range sheets {
		if err := repo.ReplaceRegionStock(ctx, sheet.Region, sheet.Records); err != nil {
			return nil, fmt.Errorf("failed to load %s stock: %w", sheet.Region.Name, err)
		}
	}
	return repo, nil
}

func (c *ReportCommand) record(event events.Event) {
	if err := c.journal.AppendEvent(c.config.RunID, event); err != nil {
		c.logger.Warn().Err(err).Str("event", event.Type()).Msg("failed to record event")
	}
}

// journalEntries returns the events recorded for this run
func (c *ReportCommand) journalEntries() []dto.JournalEntry {
	recorded, err := c.journal.ReadEvents(c.config.RunID, 1)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read run journal")
		return nil
	}

	entries := make([]dto.JournalEntry, len(recorded))
	for i, event := range recorded {
		entries[i] = dto.JournalEntry{
			Version:   event.Version(),
			Type:      event.Type(),
			Timestamp: event.Timestamp(),
			Data:      event.Data(),
		}
	}
	return entries
}

// progressPrinter prints shortages and failed stock fetches as regions are
// allocated. Regions may report concurrently when allocation runs in parallel.
func progressPrinter(out io.Writer) *events.HandlerFunc {
	var mu sync.Mutex
	return &events.HandlerFunc{
		Types: []string{events.ShortageDetectedEvent, events.StockFetchFailedEvent},
		Fn: func(event events.Event) error {
			mu.Lock()
			defer mu.Unlock()

			switch data := event.Data().(type) {
			case events.ShortageDetected:
				fmt.Fprintf(out, "  🔻 %s: %s short by %s\n", data.Region, data.Key, data.Deficit)
			case events.StockFetchFailed:
				fmt.Fprintf(out, "  ⚠️  %s: stock fetch failed: %s\n", data.Region, data.Error)
			}
			return nil
		},
	}
}

// printHeader prints the command header information
func (c *ReportCommand) printHeader(files map[string]string) {
	out := c.config.out()
	app := c.config.App

	fmt.Fprintf(out, "🚀 Stock Allocation CLI\n")
	fmt.Fprintf(out, "Run ID: %s\n", c.config.RunID)
	fmt.Fprintf(out, "Input files:\n")
	for _, name := range []string{InputShipments, InputSaleInventory, InputViability, InputOrders, InputB2C, InputB2B, InputStockWorkbook} {
		if path, ok := files[name]; ok {
			fmt.Fprintf(out, "  %s: %s\n", name, path)
		}
	}
	if app.Stock.Source == config.StockSourceDatabase {
		fmt.Fprintf(out, "Stock database: %s\n", app.Database.Driver)
	}
	fmt.Fprintf(out, "Output format: %s\n", app.Report.Format)
	fmt.Fprintf(out, "Output workbook: %s\n", app.OutputPath())
	fmt.Fprintln(out)
}

// showHelp displays the help message
func (c *ReportCommand) showHelp() {
	fmt.Fprintf(c.config.out(), `Stock Allocation CLI - FBA shipment allocation across state warehouses

USAGE:
    stockalloc [options]                   # Run the daily allocation report
    stockalloc seed [options]              # Load the stock workbook into the stock database

OPTIONS:
    -config <file>      Path to a YAML config file (default: ./config/stockalloc.yaml)
    -data <dir>         Directory holding the daily reports (default: Data)
    -output <file>      Output workbook (default: Output.xlsx next to the data directory)
    -stock <source>     Stock source: database, workbook (default: database)
    -workbook <file>    Stock workbook, relative to the data directory (default: SQL Data.xlsx)
    -driver <name>      Stock database driver: mysql, postgres, sqlite
    -dsn <dsn>          Stock database DSN
    -format <fmt>       Summary format: text, json (default: text)
    -parallel           Allocate regions concurrently
    -verbose            Enable verbose output
    -help               Show this help message

DATA DIRECTORY:
    Data/
    ├── FBA Shipments.csv                  # Amazon Order Id, Merchant SKU, Shipped Quantity, FC
    ├── FBA Sale & Inventory Report.xlsx   # sheet "Amz fulfilled shipments"
    ├── Viability Sheet.xlsx               # SKU, MOQ, Modi SKU
    ├── All Orders.txt                     # tab separated marketplace orders
    ├── GST_MTR_B2C*.csv                   # optional, Ship To State
    └── GST_MTR_B2B*.csv                   # optional, Bill To State

ENVIRONMENT:
    Every option can be set as STOCKALLOC_<SECTION>_<KEY>, e.g.
    STOCKALLOC_DATABASE_DSN, STOCKALLOC_REPORT_PARALLEL. A .env file is loaded first.

EXAMPLES:
    # Daily run against the MySQL stock database
    STOCKALLOC_DATABASE_DSN='user:pass@tcp(localhost:3306)/stock' stockalloc -data Data -verbose

    # Run from the stock workbook without a database
    stockalloc -stock workbook -data Data

    # Seed a local SQLite stock database, then run against it
    stockalloc seed -driver sqlite -dsn stock.db
    stockalloc -driver sqlite -dsn stock.db -format json
`)
}

func regionNames(regions []entities.Region) []string {
	names := make([]string, len(regions))
	for i, region := range regions {
		names[i] = region.Name
	}
	return names
}
