package events

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

const (
	RunStartedEvent       = "run.started"
	ShipmentsBuiltEvent   = "shipments.built"
	StockFetchedEvent     = "stock.fetched"
	StockFetchFailedEvent = "stock.fetch_failed"
	RegionAllocatedEvent  = "region.allocated"
	ShortageDetectedEvent = "shortage.detected"
	ReportExportedEvent   = "report.exported"
	StockSeededEvent      = "stock.seeded"
)

type RunStarted struct {
	DataDir  string   `json:"data_dir"`
	Regions  []string `json:"regions"`
	Parallel bool     `json:"parallel"`
}

type ShipmentsBuilt struct {
	Shipments       int `json:"shipments"`
	BilledRemoved   int `json:"billed_removed"`
	ExcludedRemoved int `json:"excluded_removed"`
}

type StockFetched struct {
	Region string `json:"region"`
	Rows   int    `json:"rows"`
}

type StockFetchFailed struct {
	Region string `json:"region"`
	Error  string `json:"error"`
}

type RegionAllocated struct {
	Region     string          `json:"region"`
	Lines      int             `json:"lines"`
	Unresolved int             `json:"unresolved"`
	Clean      int             `json:"clean"`
	Errors     int             `json:"errors"`
	Allocated  decimal.Decimal `json:"allocated"`
	Coverage   float64         `json:"coverage"`
}

type ShortageDetected struct {
	Region  string          `json:"region"`
	Key     string          `json:"key"`
	Deficit decimal.Decimal `json:"deficit"`
}

type ReportExported struct {
	Path   string   `json:"path"`
	Sheets []string `json:"sheets"`
}

type StockSeeded struct {
	Region  string `json:"region"`
	Table   string `json:"table"`
	Rows    int    `json:"rows"`
	Skipped int    `json:"skipped"`
}

func NewRunStartedEvent(runID string, started RunStarted) Event {
	return NewEvent(RunStartedEvent, runID, started)
}

func NewShipmentsBuiltEvent(runID string, built ShipmentsBuilt) Event {
	return NewEvent(ShipmentsBuiltEvent, runID, built)
}

func NewStockFetchedEvent(runID string, region entities.Region, rows int) Event {
	return NewEvent(StockFetchedEvent, runID, StockFetched{Region: region.Name, Rows: rows})
}

func NewStockFetchFailedEvent(runID string, region entities.Region, err error) Event {
	return NewEvent(StockFetchFailedEvent, runID, StockFetchFailed{Region: region.Name, Error: err.Error()})
}

func NewRegionAllocatedEvent(runID string, allocated RegionAllocated) Event {
	return NewEvent(RegionAllocatedEvent, runID, allocated)
}

// NewShortageDetectedEvent records an unmet demand. record must be a shortage record.
func NewShortageDetectedEvent(runID string, region entities.Region, record entities.AllocationRecord) Event {
	return NewEvent(ShortageDetectedEvent, runID, ShortageDetected{
		Region:  region.Name,
		Key:     record.Key().String(),
		Deficit: record.Allocated.Decimal.Neg(),
	})
}

func NewReportExportedEvent(runID, path string, sheets []string) Event {
	return NewEvent(ReportExportedEvent, runID, ReportExported{Path: path, Sheets: sheets})
}

func NewStockSeededEvent(runID string, region entities.Region, rows, skipped int) Event {
	return NewEvent(StockSeededEvent, runID, StockSeeded{
		Region:  region.Name,
		Table:   region.StockTable,
		Rows:    rows,
		Skipped: skipped,
	})
}
