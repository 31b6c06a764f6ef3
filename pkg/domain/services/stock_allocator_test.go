package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

func demandLine(order, sku, barcode string, required, stock int64) entities.DemandLine {
	return entities.DemandLine{
		OrderID:          entities.OrderID(order),
		SKU:              entities.SKU(sku),
		Barcode:          entities.Barcode(barcode),
		RequiredQuantity: decimal.NewFromInt(required),
		AvailableStock:   decimal.NewFromInt(stock),
	}
}

func assertAllocated(t *testing.T, record entities.AllocationRecord, expected int64) {
	t.Helper()
	if !record.Allocated.Valid {
		t.Fatalf("Expected allocated %d, got missing", expected)
	}
	if !record.Allocated.Decimal.Equal(decimal.NewFromInt(expected)) {
		t.Errorf("Expected allocated %d, got %s", expected, record.Allocated.Decimal)
	}
}

func TestStockAllocator_Scenarios(t *testing.T) {
	allocator := NewStockAllocator()

	tests := []struct {
		name              string
		lines             []entities.DemandLine
		expectedAllocated []int64
		expectedShortages []int64
	}{
		{
			name: "second_barcode_tops_up",
			lines: []entities.DemandLine{
				demandLine("O1", "S1", "B1", 10, 4),
				demandLine("O1", "S1", "B2", 10, 10),
			},
			expectedAllocated: []int64{4, 6},
		},
		{
			name: "single_line_shortage",
			lines: []entities.DemandLine{
				demandLine("O1", "S1", "B1", 10, 3),
			},
			expectedAllocated: []int64{3},
			expectedShortages: []int64{-7},
		},
		{
			name: "zero_required_never_allocated",
			lines: []entities.DemandLine{
				demandLine("O1", "S1", "B1", 0, 5),
			},
			expectedAllocated: []int64{0},
		},
		{
			name: "shared_barcode_across_keys",
			lines: []entities.DemandLine{
				demandLine("O1", "S1", "B1", 3, 5),
				demandLine("O2", "S2", "B1", 4, 5),
			},
			expectedAllocated: []int64{3, 2},
			expectedShortages: []int64{-2},
		},
		{
			name: "fulfilled_key_skips_remaining_barcodes",
			lines: []entities.DemandLine{
				demandLine("O1", "S1", "B1", 2, 5),
				demandLine("O1", "S1", "B2", 2, 5),
				demandLine("O2", "S1", "B2", 5, 5),
			},
			expectedAllocated: []int64{2, 0, 5},
		},
		{
			name: "empty_barcode_stock",
			lines: []entities.DemandLine{
				demandLine("O1", "S1", "B1", 4, 0),
			},
			expectedAllocated: []int64{0},
			expectedShortages: []int64{-4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := allocator.Allocate(tt.lines)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}

			expectedLen := len(tt.expectedAllocated) + len(tt.expectedShortages)
			if len(records) != expectedLen {
				t.Fatalf("Expected %d records, got %d", expectedLen, len(records))
			}

			for i, expected := range tt.expectedAllocated {
				if records[i].Shortage {
					t.Errorf("Record %d unexpectedly flagged as shortage", i)
				}
				assertAllocated(t, records[i], expected)
			}

			for i, expected := range tt.expectedShortages {
				record := records[len(tt.expectedAllocated)+i]
				if !record.Shortage {
					t.Errorf("Expected record %d to be a shortage", len(tt.expectedAllocated)+i)
				}
				assertAllocated(t, record, expected)
				if !record.AvailableStock.IsZero() {
					t.Errorf("Expected shortage available stock 0, got %s", record.AvailableStock)
				}
			}
		})
	}
}

func TestStockAllocator_ShortageClonesLastLine(t *testing.T) {
	allocator := NewStockAllocator()

	first := demandLine("O1", "S1", "B1", 10, 1)
	first.FC = "BOM5"
	second := demandLine("O1", "S1", "B2", 10, 2)
	second.FC = "PNQ2"
	second.NetAmount = decimal.NewNullDecimal(decimal.NewFromInt(500))

	records, err := allocator.Allocate([]entities.DemandLine{first, second})
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	shortage := records[2]
	if shortage.Barcode != "B2" || shortage.FC != "PNQ2" {
		t.Errorf("Expected shortage cloned from last line (B2/PNQ2), got %s/%s", shortage.Barcode, shortage.FC)
	}
	if !shortage.NetAmount.Valid || !shortage.NetAmount.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected pass-through net amount 500, got %v", shortage.NetAmount)
	}
	assertAllocated(t, shortage, -7)
}

func TestStockAllocator_ShortagesInDiscoveryOrder(t *testing.T) {
	allocator := NewStockAllocator()

	lines := []entities.DemandLine{
		demandLine("O2", "S1", "B1", 3, 0),
		demandLine("O1", "S1", "B2", 5, 1),
		demandLine("O2", "S1", "B3", 3, 1),
	}

	records, err := allocator.Allocate(lines)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(records))
	}

	if records[3].OrderID != "O2" || records[4].OrderID != "O1" {
		t.Errorf("Expected shortages for O2 then O1, got %s then %s", records[3].OrderID, records[4].OrderID)
	}
	if records[3].Barcode != "B3" {
		t.Errorf("Expected O2 shortage cloned from its last line B3, got %s", records[3].Barcode)
	}
	assertAllocated(t, records[3], -2)
	assertAllocated(t, records[4], -4)
}

func TestStockAllocator_FirstSeenStockWins(t *testing.T) {
	allocator := NewStockAllocator()

	// B1 reports different stock on its second line; the first observed value governs
	lines := []entities.DemandLine{
		demandLine("O1", "S1", "B1", 2, 3),
		demandLine("O2", "S2", "B1", 5, 100),
	}

	records, err := allocator.Allocate(lines)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	assertAllocated(t, records[0], 2)
	assertAllocated(t, records[1], 1)
	assertAllocated(t, records[2], -4)
}

func TestStockAllocator_DoesNotMutateInput(t *testing.T) {
	allocator := NewStockAllocator()

	lines := []entities.DemandLine{
		demandLine("O1", "S1", "B1", 10, 3),
	}

	if _, err := allocator.Allocate(lines); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if !lines[0].AvailableStock.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Input available stock changed to %s", lines[0].AvailableStock)
	}
	if !lines[0].RequiredQuantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Input required quantity changed to %s", lines[0].RequiredQuantity)
	}
}

func TestStockAllocator_FractionalQuantities(t *testing.T) {
	allocator := NewStockAllocator()

	line := demandLine("O1", "S1", "B1", 0, 0)
	line.RequiredQuantity = decimal.RequireFromString("2.5")
	line.AvailableStock = decimal.RequireFromString("1.25")

	records, err := allocator.Allocate([]entities.DemandLine{line})
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if !records[0].Allocated.Decimal.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("Expected allocated 1.25, got %s", records[0].Allocated.Decimal)
	}
	if !records[1].Allocated.Decimal.Equal(decimal.RequireFromString("-1.25")) {
		t.Errorf("Expected shortage -1.25, got %s", records[1].Allocated.Decimal)
	}
}

func TestStockAllocator_EmptyInput(t *testing.T) {
	records, err := NewStockAllocator().Allocate(nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestStockAllocator_RejectsInvalidLines(t *testing.T) {
	allocator := NewStockAllocator()

	tests := []struct {
		name string
		line entities.DemandLine
	}{
		{"missing_order", demandLine("", "S1", "B1", 1, 1)},
		{"missing_sku", demandLine("O1", "", "B1", 1, 1)},
		{"missing_barcode", demandLine("O1", "S1", "", 1, 1)},
		{"negative_required", demandLine("O1", "S1", "B1", -1, 1)},
		{"negative_stock", demandLine("O1", "S1", "B1", 1, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := allocator.Allocate([]entities.DemandLine{demandLine("O0", "S0", "B0", 1, 1), tt.line})
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !errors.Is(err, ErrInvalidDemandLine) {
				t.Errorf("Expected ErrInvalidDemandLine, got %v", err)
			}
			if records != nil {
				t.Errorf("Expected no records on error, got %d", len(records))
			}
		})
	}
}
