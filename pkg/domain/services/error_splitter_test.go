package services

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/stockalloc/pkg/domain/entities"
)

func nd(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func reportLine(order string, allocated, net, discount decimal.NullDecimal) entities.ReportLine {
	line := entities.ReportLine{
		AllocationRecord: entities.AllocationRecord{
			DemandLine: demandLine(order, "S1", "B1", 1, 1),
			Allocated:  allocated,
		},
		Discount: discount,
	}
	line.NetAmount = net
	return line
}

func TestErrorReasons(t *testing.T) {
	missing := decimal.NullDecimal{}

	tests := []struct {
		name     string
		line     entities.ReportLine
		expected []entities.ErrorReason
	}{
		{"clean", reportLine("O1", nd(2), nd(100), nd(20)), nil},
		{"zero_discount_is_clean", reportLine("O1", nd(2), nd(100), nd(0)), nil},
		{"zero_net_amount", reportLine("O1", nd(2), nd(0), nd(20)), []entities.ErrorReason{entities.ReasonZeroNetAmount}},
		{"negative_discount", reportLine("O1", nd(2), nd(100), nd(-5)), []entities.ErrorReason{entities.ReasonNegativeDiscount}},
		{"shortage", reportLine("O1", nd(-3), nd(-30), nd(5)), []entities.ErrorReason{entities.ReasonShortage}},
		{"missing_allocation", reportLine("O1", missing, missing, missing), []entities.ErrorReason{
			entities.ReasonMissingAllocation,
			entities.ReasonMissingNetAmount,
			entities.ReasonMissingDiscount,
		}},
		{"missing_net_amount", reportLine("O1", nd(1), missing, missing), []entities.ErrorReason{
			entities.ReasonMissingNetAmount,
			entities.ReasonMissingDiscount,
		}},
		{"zero_net_and_negative_discount", reportLine("O1", nd(1), nd(0), nd(-1)), []entities.ErrorReason{
			entities.ReasonZeroNetAmount,
			entities.ReasonNegativeDiscount,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := ErrorReasons(tt.line)
			if !reflect.DeepEqual(reasons, tt.expected) {
				t.Errorf("Expected reasons %v, got %v", tt.expected, reasons)
			}
		})
	}
}

func TestSplitErrors_PreservesOrder(t *testing.T) {
	lines := []entities.ReportLine{
		reportLine("O1", nd(1), nd(100), nd(10)),
		reportLine("O2", nd(-1), nd(-100), nd(10)),
		reportLine("O3", nd(1), nd(50), nd(5)),
		reportLine("O4", nd(1), nd(0), nd(5)),
	}

	clean, errs := SplitErrors(lines)

	if len(clean) != 2 || clean[0].OrderID != "O1" || clean[1].OrderID != "O3" {
		t.Errorf("Expected clean lines O1, O3, got %v", orderIDs(clean))
	}
	if len(errs) != 2 || errs[0].OrderID != "O2" || errs[1].OrderID != "O4" {
		t.Errorf("Expected error lines O2, O4, got %v", orderIDs(errs))
	}
	if len(errs[0].ErrorReasons) == 0 {
		t.Error("Expected error line to carry reasons")
	}
	if lines[1].ErrorReasons != nil {
		t.Error("Expected input lines to be left untouched")
	}
}

func TestSplitErrors_Empty(t *testing.T) {
	clean, errs := SplitErrors(nil)
	if clean == nil || errs == nil {
		t.Error("Expected empty, non-nil partitions")
	}
	if len(clean) != 0 || len(errs) != 0 {
		t.Errorf("Expected empty partitions, got %d and %d", len(clean), len(errs))
	}
}

func orderIDs(lines []entities.ReportLine) []entities.OrderID {
	ids := make([]entities.OrderID, len(lines))
	for i, line := range lines {
		ids[i] = line.OrderID
	}
	return ids
}
