package services

import "github.com/vsinha/stockalloc/pkg/domain/entities"

// SplitErrors partitions report lines into clean and error lines, preserving
// order within each partition. Every input line lands in exactly one output.
// Error lines carry the reasons they were flagged.
func SplitErrors(lines []entities.ReportLine) (clean, errs []entities.ReportLine) {
	clean = make([]entities.ReportLine, 0, len(lines))
	errs = make([]entities.ReportLine, 0)

	for _, line := range lines {
		reasons := ErrorReasons(line)
		if len(reasons) == 0 {
			clean = append(clean, line)
			continue
		}
		line.ErrorReasons = reasons
		errs = append(errs, line)
	}

	return clean, errs
}

// ErrorReasons lists every financial-consistency rule the line breaks
func ErrorReasons(line entities.ReportLine) []entities.ErrorReason {
	var reasons []entities.ErrorReason

	if line.NetAmount.Valid && line.NetAmount.Decimal.IsZero() {
		reasons = append(reasons, entities.ReasonZeroNetAmount)
	}
	if line.Discount.Valid && line.Discount.Decimal.IsNegative() {
		reasons = append(reasons, entities.ReasonNegativeDiscount)
	}
	if line.Allocated.Valid && line.Allocated.Decimal.IsNegative() {
		reasons = append(reasons, entities.ReasonShortage)
	}
	if !line.Allocated.Valid {
		reasons = append(reasons, entities.ReasonMissingAllocation)
	}
	if !line.NetAmount.Valid {
		reasons = append(reasons, entities.ReasonMissingNetAmount)
	}
	if !line.Discount.Valid {
		reasons = append(reasons, entities.ReasonMissingDiscount)
	}

	return reasons
}
