package entities

import "github.com/shopspring/decimal"

// ErrorReason explains why a report line was routed to the Errors sheet
type ErrorReason string

const (
	ReasonZeroNetAmount     ErrorReason = "NetAmt is zero"
	ReasonNegativeDiscount  ErrorReason = "Discount is negative"
	ReasonShortage          ErrorReason = "Stock shortage"
	ReasonMissingAllocation ErrorReason = "Allocated Qty missing"
	ReasonMissingNetAmount  ErrorReason = "NetAmt missing"
	ReasonMissingDiscount   ErrorReason = "Discount missing"
)

// ReportLine is an allocation record with its financial columns recomputed
// for the allocated quantity. The promoted NetAmount holds the recomputed value.
type ReportLine struct {
	AllocationRecord
	MRPTotal     decimal.NullDecimal
	Discount     decimal.NullDecimal
	ErrorReasons []ErrorReason
}
