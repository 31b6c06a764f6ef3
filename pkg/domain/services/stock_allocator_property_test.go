package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
	"pgregory.net/rapid"
)

// genDemandLines draws lines from a small pool of keys and barcodes so that
// keys span several barcodes and barcodes are shared across keys. Required
// quantity is constant per key and available stock constant per barcode.
func genDemandLines(t *rapid.T) []entities.DemandLine {
	keyCount := rapid.IntRange(1, 4).Draw(t, "keys")
	barcodeCount := rapid.IntRange(1, 4).Draw(t, "barcodes")

	required := make([]int64, keyCount)
	for i := range required {
		required[i] = rapid.Int64Range(0, 20).Draw(t, fmt.Sprintf("required_%d", i))
	}
	stock := make([]int64, barcodeCount)
	for i := range stock {
		stock[i] = rapid.Int64Range(0, 20).Draw(t, fmt.Sprintf("stock_%d", i))
	}

	n := rapid.IntRange(0, 12).Draw(t, "lines")
	lines := make([]entities.DemandLine, n)
	for i := range lines {
		k := rapid.IntRange(0, keyCount-1).Draw(t, fmt.Sprintf("key_%d", i))
		b := rapid.IntRange(0, barcodeCount-1).Draw(t, fmt.Sprintf("barcode_%d", i))
		lines[i] = demandLine(
			fmt.Sprintf("O%d", k), "S",
			fmt.Sprintf("B%d", b),
			required[k], stock[b],
		)
	}
	return lines
}

func TestStockAllocator_Properties(t *testing.T) {
	allocator := NewStockAllocator()

	rapid.Check(t, func(t *rapid.T) {
		lines := genDemandLines(t)

		records, err := allocator.Allocate(lines)
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if len(records) < len(lines) {
			t.Fatalf("Expected at least %d records, got %d", len(lines), len(records))
		}

		allocatedPerKey := make(map[entities.DemandKey]decimal.Decimal)
		allocatedPerBarcode := make(map[entities.Barcode]decimal.Decimal)
		requiredPerKey := make(map[entities.DemandKey]decimal.Decimal)
		stockPerBarcode := make(map[entities.Barcode]decimal.Decimal)
		for _, line := range lines {
			if _, ok := requiredPerKey[line.Key()]; !ok {
				requiredPerKey[line.Key()] = line.RequiredQuantity
			}
			if _, ok := stockPerBarcode[line.Barcode]; !ok {
				stockPerBarcode[line.Barcode] = line.AvailableStock
			}
		}

		for i, record := range records[:len(lines)] {
			if record.Shortage {
				t.Fatalf("Record %d flagged as shortage within the line section", i)
			}
			if record.Allocated.Decimal.IsNegative() {
				t.Fatalf("Record %d has negative allocation %s", i, record.Allocated.Decimal)
			}
			allocatedPerKey[record.Key()] = allocatedPerKey[record.Key()].Add(record.Allocated.Decimal)
			allocatedPerBarcode[record.Barcode] = allocatedPerBarcode[record.Barcode].Add(record.Allocated.Decimal)
		}

		shortagePerKey := make(map[entities.DemandKey]decimal.Decimal)
		for _, record := range records[len(lines):] {
			if !record.Shortage || !record.Allocated.Decimal.IsNegative() {
				t.Fatalf("Expected shortage record with negative allocation, got %+v", record)
			}
			if _, dup := shortagePerKey[record.Key()]; dup {
				t.Fatalf("Duplicate shortage record for %s", record.Key())
			}
			shortagePerKey[record.Key()] = record.Allocated.Decimal.Neg()
		}

		// conservation: allocated plus deficit equals the key's demand
		for key, required := range requiredPerKey {
			total := allocatedPerKey[key].Add(shortagePerKey[key])
			if !total.Equal(required) {
				t.Fatalf("Key %s: allocated %s + deficit %s != required %s",
					key, allocatedPerKey[key], shortagePerKey[key], required)
			}
		}

		// stock bound: never allocate more than the barcode holds
		for barcode, stock := range stockPerBarcode {
			if allocatedPerBarcode[barcode].GreaterThan(stock) {
				t.Fatalf("Barcode %s: allocated %s exceeds stock %s", barcode, allocatedPerBarcode[barcode], stock)
			}
		}

		// idempotence: the allocator is a pure function of its input
		again, err := allocator.Allocate(lines)
		if err != nil {
			t.Fatalf("Second Allocate failed: %v", err)
		}
		if len(again) != len(records) {
			t.Fatalf("Second run produced %d records, first %d", len(again), len(records))
		}
		for i := range records {
			if !again[i].Allocated.Decimal.Equal(records[i].Allocated.Decimal) || again[i].Key() != records[i].Key() {
				t.Fatalf("Record %d differs between runs", i)
			}
		}
	})
}

func TestSplitErrors_Properties(t *testing.T) {
	allocator := NewStockAllocator()

	rapid.Check(t, func(t *rapid.T) {
		lines := genDemandLines(t)
		for i := range lines {
			if rapid.Bool().Draw(t, fmt.Sprintf("priced_%d", i)) {
				lines[i].NetAmount = decimal.NewNullDecimal(decimal.NewFromInt(rapid.Int64Range(0, 1000).Draw(t, fmt.Sprintf("net_%d", i))))
				lines[i].MRP = decimal.NewNullDecimal(decimal.NewFromInt(rapid.Int64Range(0, 1000).Draw(t, fmt.Sprintf("mrp_%d", i))))
			}
		}

		records, err := allocator.Allocate(lines)
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}

		report := make([]entities.ReportLine, len(records))
		for i, record := range records {
			report[i] = RecomputeFinancials(record)
		}

		clean, errs := SplitErrors(report)
		if len(clean)+len(errs) != len(report) {
			t.Fatalf("Partition lost lines: %d + %d != %d", len(clean), len(errs), len(report))
		}
		for _, line := range clean {
			if len(ErrorReasons(line)) != 0 {
				t.Fatalf("Clean line has error reasons: %v", ErrorReasons(line))
			}
		}
		for _, line := range errs {
			if len(line.ErrorReasons) == 0 {
				t.Fatal("Error line carries no reasons")
			}
		}
		for _, record := range records {
			if record.Shortage {
				found := false
				for _, line := range errs {
					if line.Shortage && line.Key() == record.Key() {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("Shortage for %s missing from error partition", record.Key())
				}
			}
		}
	})
}
