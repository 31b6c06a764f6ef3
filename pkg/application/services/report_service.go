package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vsinha/stockalloc/pkg/application/dto"
	"github.com/vsinha/stockalloc/pkg/application/services/shared"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/vsinha/stockalloc/pkg/domain/repositories"
	domain "github.com/vsinha/stockalloc/pkg/domain/services"
	"github.com/vsinha/stockalloc/pkg/infrastructure/events"
	"github.com/vsinha/stockalloc/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ReportConfig holds configuration for region dispatch
type ReportConfig struct {
	// Parallel allocates regions concurrently. Results keep region order.
	Parallel bool
	// FetchTimeout bounds each region's stock query (0 = no bound)
	FetchTimeout time.Duration
}

// ReportService runs the allocation pipeline for every region
type ReportService struct {
	config    ReportConfig
	regions   []entities.Region
	stock     repositories.StockRepository
	builder   *TableBuilder
	allocator *domain.StockAllocator
	journal   events.EventStore
	logger    *logger.Logger
}

// NewReportService creates a report service over the given regions
func NewReportService(
	config ReportConfig,
	regions []entities.Region,
	stock repositories.StockRepository,
	builder *TableBuilder,
	journal events.EventStore,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		config:    config,
		regions:   regions,
		stock:     stock,
		builder:   builder,
		allocator: domain.NewStockAllocator(),
		journal:   journal,
		logger:    log.WithComponent("report_service"),
	}
}

// Run allocates stock for every region and combines the region error sets in
// region order. A region whose stock cannot be fetched runs with empty stock.
func (s *ReportService) Run(ctx context.Context, runID string, shipments []entities.Shipment) (*dto.Report, error) {
	report := &dto.Report{
		RunID:       runID,
		GeneratedAt: time.Now(),
		Shipments:   shipments,
		Regions:     make([]dto.RegionReport, len(s.regions)),
	}

	if s.config.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, region := range s.regions {
			g.Go(func() error {
				result, err := s.RunRegion(gctx, runID, region, shipments)
				if err != nil {
					return err
				}
				report.Regions[i] = *result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, region := range s.regions {
			result, err := s.RunRegion(ctx, runID, region, shipments)
			if err != nil {
				return nil, err
			}
			report.Regions[i] = *result
		}
	}

	report.Errors = make([]entities.ReportLine, 0)
	for _, region := range report.Regions {
		report.Errors = append(report.Errors, region.Errors...)
	}

	return report, nil
}

// RunRegion builds the region table, allocates its resolved rows and splits
// the recomputed lines into clean and error sets
func (s *ReportService) RunRegion(ctx context.Context, runID string, region entities.Region, shipments []entities.Shipment) (*dto.RegionReport, error) {
	log := s.logger.WithRunID(runID).WithRegion(region.Name)
	summary := dto.RegionSummary{Region: region.Name}

	stock, err := s.fetchStock(ctx, region)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("region %s: %w", region.Name, ctx.Err())
		}
		summary.StockFetchFailed = true
		log.Warn().Err(err).Msg("stock fetch failed, allocating against empty stock")
		s.record(log, runID, events.NewStockFetchFailedEvent(runID, region, err))
	} else {
		s.record(log, runID, events.NewStockFetchedEvent(runID, region, len(stock)))
	}
	summary.StockRows = len(stock)

	rows := s.builder.BuildRegionTable(region, shipments, stock)
	summary.Lines = len(rows)

	resolved := make([]entities.DemandLine, 0, len(rows))
	for _, row := range rows {
		if row.Resolved {
			resolved = append(resolved, row.Line)
		}
	}
	summary.Unresolved = len(rows) - len(resolved)

	allocated, err := s.allocator.Allocate(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate region %s: %w", region.Name, err)
	}

	records := mergeUnresolved(rows, allocated)
	coverage := shared.NewAllocationMapFromRecords(records)

	lines := make([]entities.ReportLine, 0, len(records))
	for _, record := range records {
		if record.IsZeroAllocation() {
			summary.Dropped++
			continue
		}
		if record.Shortage {
			summary.Shortages++
			s.record(log, runID, events.NewShortageDetectedEvent(runID, region, record))
		}
		lines = append(lines, domain.RecomputeFinancials(record))
	}

	clean, errs := domain.SplitErrors(lines)

	summary.Clean = len(clean)
	summary.Errors = len(errs)
	summary.Allocated = coverage.GetTotalAllocated()
	summary.Demand = coverage.GetTotalDemand()
	summary.Coverage = coverage.GetCoverageRatio()
	for _, key := range coverage.GetShortKeys() {
		summary.ShortKeys = append(summary.ShortKeys, key.String())
	}

	s.record(log, runID, events.NewRegionAllocatedEvent(runID, events.RegionAllocated{
		Region:     region.Name,
		Lines:      summary.Lines,
		Unresolved: summary.Unresolved,
		Clean:      summary.Clean,
		Errors:     summary.Errors,
		Allocated:  summary.Allocated,
		Coverage:   summary.Coverage,
	}))

	log.Info().
		Int("lines", summary.Lines).
		Int("unresolved", summary.Unresolved).
		Int("shortages", summary.Shortages).
		Int("clean", summary.Clean).
		Int("errors", summary.Errors).
		Float64("coverage", summary.Coverage).
		Msg("region allocated")

	return &dto.RegionReport{
		Region:  region,
		Clean:   clean,
		Errors:  errs,
		Summary: summary,
	}, nil
}

func (s *ReportService) fetchStock(ctx context.Context, region entities.Region) ([]entities.StockRecord, error) {
	if s.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.FetchTimeout)
		defer cancel()
	}
	return s.stock.FetchRegionStock(ctx, region)
}

// record appends to the run journal. A journal failure is logged, never fatal.
func (s *ReportService) record(log *logger.Logger, runID string, event events.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.AppendEvent(runID, event); err != nil {
		log.Warn().Err(err).Str("event", event.Type()).Msg("failed to record event")
	}
}

// mergeUnresolved restores table order: allocated records fill the resolved
// rows, unresolved rows get a missing allocation, and the allocator's
// shortage records follow at the end.
func mergeUnresolved(rows []RegionRow, allocated []entities.AllocationRecord) []entities.AllocationRecord {
	records := make([]entities.AllocationRecord, 0, len(allocated)+len(rows))
	next := 0
	for _, row := range rows {
		if row.Resolved {
			records = append(records, allocated[next])
			next++
			continue
		}
		records = append(records, entities.NewUnallocatedRecord(row.Line))
	}
	return append(records, allocated[next:]...)
}
