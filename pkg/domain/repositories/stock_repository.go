package repositories

import (
	"context"

	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

// StockRepository provides access to the per-region stock tables
type StockRepository interface {
	// FetchRegionStock returns every stock row held for the region
	FetchRegionStock(ctx context.Context, region entities.Region) ([]entities.StockRecord, error)

	// ReplaceRegionStock swaps the region's stock for the given records in one step
	ReplaceRegionStock(ctx context.Context, region entities.Region, records []entities.StockRecord) error
}
