package sql

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/vsinha/stockalloc/pkg/domain/repositories"
	"github.com/vsinha/stockalloc/pkg/logger"
	_ "modernc.org/sqlite"
)

var (
	// ErrUnsupportedDriver is returned for drivers other than mysql, postgres and sqlite
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrInvalidTableName is returned when a region's stock table name is not a plain identifier
	ErrInvalidTableName = errors.New("invalid table name")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// driverNames maps configuration driver names to registered database/sql drivers
var driverNames = map[string]string{
	"mysql":    "mysql",
	"postgres": "postgres",
	"sqlite":   "sqlite",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Options tune the connection pool
type Options struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the stock database
func Open(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	name, ok := driverNames[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.ConnectContext(ctx, name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return db, nil
}

// StockRepository reads and replaces regional stock tables
type StockRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewStockRepository creates a repository over an open connection
func NewStockRepository(db *sqlx.DB, log *logger.Logger) *StockRepository {
	return &StockRepository{
		db:     db,
		logger: log.WithComponent("stock_repository"),
	}
}

// Verify interface compliance
var _ repositories.StockRepository = (*StockRepository)(nil)

// FetchRegionStock returns the stock rows of the region in table order
func (r *StockRepository) FetchRegionStock(ctx context.Context, region entities.Region) ([]entities.StockRecord, error) {
	table, err := quoteTable(r.db.DriverName(), region.StockTable)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT modi_sku, scancode, mrp, COALESCE(stock, 0) AS stock FROM %s", table)

	var rows []entities.StockRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to fetch stock for %s: %w", region.Name, err)
	}

	// Invalid rows are skipped, the rest of the region still allocates
	records := make([]entities.StockRecord, 0, len(rows))
	for i, row := range rows {
		record, err := entities.NewStockRecord(row.ModiSKU, row.Scancode, row.MRP, row.Stock)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("region", region.Name).
				Int("row", i).
				Msg("skipping invalid stock row")
			continue
		}
		records = append(records, *record)
	}

	r.logger.Debug().
		Str("region", region.Name).
		Int("rows", len(records)).
		Int("skipped", len(rows)-len(records)).
		Msg("fetched region stock")

	return records, nil
}

// ReplaceRegionStock creates the region's table when missing and replaces its
// contents with records inside one transaction
func (r *StockRepository) ReplaceRegionStock(ctx context.Context, region entities.Region, records []entities.StockRecord) error {
	table, err := quoteTable(r.db.DriverName(), region.StockTable)
	if err != nil {
		return err
	}

	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (modi_sku VARCHAR(255) NOT NULL, scancode VARCHAR(255) NOT NULL, mrp DECIMAL(18,4), stock DECIMAL(18,4) NOT NULL)",
		table,
	)
	insert := r.db.Rebind(fmt.Sprintf("INSERT INTO %s (modi_sku, scancode, mrp, stock) VALUES (?, ?, ?, ?)", table))

	return r.transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("failed to create %s: %w", region.StockTable, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", region.StockTable, err)
		}

		stmt, err := tx.PreparexContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("failed to prepare insert into %s: %w", region.StockTable, err)
		}
		defer stmt.Close()

		for i, record := range records {
			if _, err := stmt.ExecContext(ctx, record.ModiSKU, string(record.Scancode), record.MRP, record.Stock); err != nil {
				return fmt.Errorf("failed to insert row %d into %s: %w", i, region.StockTable, err)
			}
		}
		return nil
	})
}

func (r *StockRepository) transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func quoteTable(driver, name string) (string, error) {
	if !tableNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	if driver == "mysql" {
		return "`" + name + "`", nil
	}
	return `"` + name + `"`, nil
}
