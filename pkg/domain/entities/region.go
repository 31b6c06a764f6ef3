package entities

import (
	"fmt"
	"strings"
)

// Ledger names and codes used when a shipment cannot be billed to a state warehouse
const (
	OMSLedgerName = "AMAZON(OMS)"
	OMSLedgerCode = "1234567891"
)

// Region is one state warehouse: the FCs that ship from it, the ledger it bills
// to and where its stock and report sheet live
type Region struct {
	Name       string   `json:"name"`
	State      string   `json:"state"`
	FCPrefixes []string `json:"fc_prefixes"`
	LedgerName string   `json:"ledger_name"`
	LedgerCode string   `json:"ledger_code"`
	SheetName  string   `json:"sheet_name"`
	StockTable string   `json:"stock_table"`
	StockSheet string   `json:"stock_sheet"`
}

// DefaultRegions returns the four state warehouses in report order
func DefaultRegions() []Region {
	return []Region{
		newRegion("Maharashtra", []string{"BOM", "PNQ"}, "1234567890", "Maharashtra"),
		newRegion("Karnataka", []string{"BLR"}, "1234567892", "KARNATAKA"),
		newRegion("Gujarat", []string{"AMD"}, "1234567894", "GUJARAT"),
		newRegion("Haryana", []string{"DEL"}, "1234567893", "HARYANA"),
	}
}

func newRegion(name string, prefixes []string, ledgerCode, sheet string) Region {
	state := strings.ToUpper(name)
	return Region{
		Name:       name,
		State:      state,
		FCPrefixes: prefixes,
		LedgerName: fmt.Sprintf("AMAZON(%s)", state),
		LedgerCode: ledgerCode,
		SheetName:  sheet,
		StockTable: strings.ToLower(name) + "_data",
		StockSheet: name + " Data",
	}
}

// MatchesFC reports whether the fulfillment center belongs to the region
func (r Region) MatchesFC(fc string) bool {
	for _, prefix := range r.FCPrefixes {
		if strings.HasPrefix(fc, prefix) {
			return true
		}
	}
	return false
}

// AssignLedger returns the ledger a shipment bills to. A shipment bills to a
// region only when it left one of the region's FCs and was delivered in the
// region's state.
func AssignLedger(regions []Region, fc, shipToState string) (name, code string) {
	state := strings.ToUpper(shipToState)
	for _, region := range regions {
		if region.MatchesFC(fc) && state == region.State {
			return region.LedgerName, region.LedgerCode
		}
	}
	return OMSLedgerName, OMSLedgerCode
}

// String returns the region name
func (r Region) String() string {
	return r.Name
}
