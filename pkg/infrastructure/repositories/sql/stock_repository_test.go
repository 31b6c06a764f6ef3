package sql

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/vsinha/stockalloc/pkg/logger"
)

type mockDB struct {
	DB   *sqlx.DB
	Mock sqlmock.Sqlmock
}

func newMockDB(t *testing.T, driver string) *mockDB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &mockDB{DB: sqlx.NewDb(db, driver), Mock: mock}
}

func region(name string) entities.Region {
	for _, r := range entities.DefaultRegions() {
		if r.Name == name {
			return r
		}
	}
	panic("unknown region " + name)
}

func stockRecord(modi, scancode string, mrp decimal.NullDecimal, stock int64) entities.StockRecord {
	return entities.StockRecord{
		ModiSKU:  modi,
		Scancode: entities.Barcode(scancode),
		MRP:      mrp,
		Stock:    decimal.NewFromInt(stock),
	}
}

func TestStockRepository_FetchRegionStock(t *testing.T) {
	m := newMockDB(t, "postgres")
	repo := NewStockRepository(m.DB, logger.Nop())

	rows := sqlmock.NewRows([]string{"modi_sku", "scancode", "mrp", "stock"}).
		AddRow("MODI-1", "8901", "120.50", "10").
		AddRow("MODI-1", "8902", nil, "0")
	m.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT modi_sku, scancode, mrp, COALESCE(stock, 0) AS stock FROM "maharashtra_data"`)).
		WillReturnRows(rows)

	records, err := repo.FetchRegionStock(context.Background(), region("Maharashtra"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "MODI-1", records[0].ModiSKU)
	assert.Equal(t, entities.Barcode("8901"), records[0].Scancode)
	assert.True(t, records[0].MRP.Valid)
	assert.Equal(t, "120.5", records[0].MRP.Decimal.String())
	assert.True(t, records[0].Stock.Equal(decimal.NewFromInt(10)))
	assert.False(t, records[1].MRP.Valid)

	assert.NoError(t, m.Mock.ExpectationsWereMet())
}

func TestStockRepository_FetchRegionStock_MySQLQuoting(t *testing.T) {
	m := newMockDB(t, "mysql")
	repo := NewStockRepository(m.DB, logger.Nop())

	m.Mock.ExpectQuery(regexp.QuoteMeta("FROM `gujarat_data`")).
		WillReturnRows(sqlmock.NewRows([]string{"modi_sku", "scancode", "mrp", "stock"}))

	records, err := repo.FetchRegionStock(context.Background(), region("Gujarat"))
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, m.Mock.ExpectationsWereMet())
}

func TestStockRepository_FetchRegionStock_Error(t *testing.T) {
	m := newMockDB(t, "postgres")
	repo := NewStockRepository(m.DB, logger.Nop())

	m.Mock.ExpectQuery("SELECT").WillReturnError(errors.New("table missing"))

	_, err := repo.FetchRegionStock(context.Background(), region("Haryana"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Haryana")
	assert.Contains(t, err.Error(), "table missing")
}

func TestStockRepository_InvalidTableName(t *testing.T) {
	m := newMockDB(t, "postgres")
	repo := NewStockRepository(m.DB, logger.Nop())

	bad := region("Karnataka")
	bad.StockTable = "karnataka_data; DROP TABLE users"

	_, err := repo.FetchRegionStock(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidTableName)

	err = repo.ReplaceRegionStock(context.Background(), bad, nil)
	assert.ErrorIs(t, err, ErrInvalidTableName)

	assert.NoError(t, m.Mock.ExpectationsWereMet())
}

func TestStockRepository_ReplaceRegionStock(t *testing.T) {
	m := newMockDB(t, "postgres")
	repo := NewStockRepository(m.DB, logger.Nop())

	records := []entities.StockRecord{
		stockRecord("MODI-1", "8901", decimal.NewNullDecimal(decimal.NewFromInt(120)), 10),
		stockRecord("MODI-2", "8910", decimal.NullDecimal{}, 0),
	}

	m.Mock.ExpectBegin()
	m.Mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "karnataka_data"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "karnataka_data"`)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	prep := m.Mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "karnataka_data" (modi_sku, scancode, mrp, stock) VALUES ($1, $2, $3, $4)`))
	prep.ExpectExec().WithArgs("MODI-1", "8901", "120", "10").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("MODI-2", "8910", nil, "0").WillReturnResult(sqlmock.NewResult(2, 1))
	m.Mock.ExpectCommit()

	err := repo.ReplaceRegionStock(context.Background(), region("Karnataka"), records)
	require.NoError(t, err)
	assert.NoError(t, m.Mock.ExpectationsWereMet())
}

func TestStockRepository_ReplaceRegionStock_RollsBack(t *testing.T) {
	m := newMockDB(t, "postgres")
	repo := NewStockRepository(m.DB, logger.Nop())

	m.Mock.ExpectBegin()
	m.Mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectExec("DELETE FROM").WillReturnError(errors.New("permission denied"))
	m.Mock.ExpectRollback()

	err := repo.ReplaceRegionStock(context.Background(), region("Gujarat"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear gujarat_data")
	assert.NoError(t, m.Mock.ExpectationsWereMet())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestStockRepository_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "stock.db")

	db, err := Open(ctx, "sqlite", dsn, Options{MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	repo := NewStockRepository(db, logger.Nop())
	maharashtra := region("Maharashtra")

	require.NoError(t, repo.ReplaceRegionStock(ctx, maharashtra, []entities.StockRecord{
		stockRecord("OLD", "0001", decimal.NullDecimal{}, 1),
	}))

	seeded := []entities.StockRecord{
		stockRecord("MODI-1", "8901", decimal.NewNullDecimal(decimal.RequireFromString("99.5")), 10),
		stockRecord("MODI-1", "8902", decimal.NullDecimal{}, 3),
	}
	require.NoError(t, repo.ReplaceRegionStock(ctx, maharashtra, seeded))

	records, err := repo.FetchRegionStock(ctx, maharashtra)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, entities.Barcode("8901"), records[0].Scancode)
	assert.True(t, records[0].MRP.Decimal.Equal(decimal.RequireFromString("99.5")))
	assert.True(t, records[0].Stock.Equal(decimal.NewFromInt(10)))
	assert.False(t, records[1].MRP.Valid)
	assert.True(t, records[1].Stock.Equal(decimal.NewFromInt(3)))

	_, err = repo.FetchRegionStock(ctx, region("Haryana"))
	assert.Error(t, err, "unseeded region table should not exist")
}

func TestStockRepository_FetchRegionStock_SkipsInvalidRows(t *testing.T) {
	m := newMockDB(t, "postgres")
	repo := NewStockRepository(m.DB, logger.Nop())

	rows := sqlmock.NewRows([]string{"modi_sku", "scancode", "mrp", "stock"}).
		AddRow("MODI-1", "", "100", "5").
		AddRow("", "8901", "100", "5").
		AddRow("MODI-1", "8902", "100", "-1").
		AddRow("MODI-1", "8903", "100", "7")
	m.Mock.ExpectQuery(regexp.QuoteMeta(`FROM "maharashtra_data"`)).WillReturnRows(rows)

	records, err := repo.FetchRegionStock(context.Background(), region("Maharashtra"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entities.Barcode("8903"), records[0].Scancode)
	assert.NoError(t, m.Mock.ExpectationsWereMet())
}

func TestStockRepository_SQLiteBlankScancode(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "stock.db")

	db, err := Open(ctx, "sqlite", dsn, Options{MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	repo := NewStockRepository(db, logger.Nop())
	maharashtra := region("Maharashtra")

	require.NoError(t, repo.ReplaceRegionStock(ctx, maharashtra, []entities.StockRecord{
		stockRecord("MODI-1", "8901", decimal.NullDecimal{}, 2),
	}))
	_, err = db.ExecContext(ctx, `INSERT INTO "maharashtra_data" (modi_sku, scancode, mrp, stock) VALUES ('MODI-1', '', 100, 5)`)
	require.NoError(t, err)

	records, err := repo.FetchRegionStock(ctx, maharashtra)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entities.Barcode("8901"), records[0].Scancode)
}
