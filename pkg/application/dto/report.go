package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// Report contains the complete output of one allocation run
type Report struct {
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Shipments   []entities.Shipment   `json:"-"`
	Regions     []RegionReport        `json:"regions"`
	Errors      []entities.ReportLine `json:"-"`
	OutputPath  string                `json:"output_path,omitempty"`
	Journal     []JournalEntry        `json:"journal,omitempty"`
}

// JournalEntry is one recorded event of the run, in the order it happened
type JournalEntry struct {
	Version   int         `json:"version"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// RegionReport is the outcome of allocating one region's shipments
type RegionReport struct {
	Region  entities.Region       `json:"-"`
	Clean   []entities.ReportLine `json:"-"`
	Errors  []entities.ReportLine `json:"-"`
	Summary RegionSummary         `json:"summary"`
}

// RegionSummary holds the counts printed for a region
type RegionSummary struct {
	Region           string          `json:"region"`
	StockRows        int             `json:"stock_rows"`
	StockFetchFailed bool            `json:"stock_fetch_failed"`
	Lines            int             `json:"lines"`
	Unresolved       int             `json:"unresolved"`
	Dropped          int             `json:"dropped_zero_allocations"`
	Shortages        int             `json:"shortages"`
	Clean            int             `json:"clean"`
	Errors           int             `json:"errors"`
	Allocated        decimal.Decimal `json:"allocated_quantity"`
	Demand           decimal.Decimal `json:"demand_quantity"`
	Coverage         float64         `json:"coverage"`
	ShortKeys        []string        `json:"short_keys,omitempty"`
}

// Summaries returns the region summaries in report order
func (r *Report) Summaries() []RegionSummary {
	summaries := make([]RegionSummary, len(r.Regions))
	for i, region := range r.Regions {
		summaries[i] = region.Summary
	}
	return summaries
}

// TotalShortages returns the number of shortage rows across regions
func (r *Report) TotalShortages() int {
	total := 0
	for _, region := range r.Regions {
		total += region.Summary.Shortages
	}
	return total
}

// HasFetchFailures reports whether any region ran with empty stock because its fetch failed
func (r *Report) HasFetchFailures() bool {
	for _, region := range r.Regions {
		if region.Summary.StockFetchFailed {
			return true
		}
	}
	return false
}
