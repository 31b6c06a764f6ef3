package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"github.com/vsinha/stockalloc/pkg/domain/repositories"
)

// StockRepository provides in-memory regional stock storage keyed by stock table
type StockRepository struct {
	mu     sync.RWMutex
	tables map[string][]entities.StockRecord
}

// NewStockRepository creates a new in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{
		tables: make(map[string][]entities.StockRecord),
	}
}

// Verify interface compliance
var _ repositories.StockRepository = (*StockRepository)(nil)

// FetchRegionStock returns a copy of the region's stock rows
func (r *StockRepository) FetchRegionStock(ctx context.Context, region entities.Region) ([]entities.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	records, exists := r.tables[region.StockTable]
	if !exists {
		return nil, fmt.Errorf("stock table %s not found", region.StockTable)
	}

	result := make([]entities.StockRecord, len(records))
	copy(result, records)
	return result, nil
}

// ReplaceRegionStock swaps the region's stock rows
func (r *StockRepository) ReplaceRegionStock(ctx context.Context, region entities.Region, records []entities.StockRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]entities.StockRecord, len(records))
	copy(stored, records)

	r.mu.Lock()
	r.tables[region.StockTable] = stored
	r.mu.Unlock()

	return nil
}

// Tables returns the number of seeded stock tables
func (r *StockRepository) Tables() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}
