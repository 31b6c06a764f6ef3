package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vsinha/stockalloc/pkg/application/dto"
)

// Config holds configuration for the console summary
type Config struct {
	Format     string
	Verbose    bool
	Elapsed    time.Duration
	InputFiles map[string]string
}

// Generate writes the run summary in the configured format
func Generate(w io.Writer, report *dto.Report, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(w, report, config)
	case "json":
		return generateJSONOutput(w, report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(w io.Writer, report *dto.Report, config Config) error {
	fmt.Fprintf(w, "📊 Stock Allocation Summary\n")
	fmt.Fprintf(w, "===========================\n\n")

	fmt.Fprintf(w, "Run ID: %s\n", report.RunID)
	fmt.Fprintf(w, "Shipments: %d\n", len(report.Shipments))
	fmt.Fprintf(w, "Shortages: %d\n", report.TotalShortages())
	fmt.Fprintf(w, "Error Rows: %d\n", len(report.Errors))
	if config.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed: %v\n", config.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "📦 Regions:\n")
	fmt.Fprintf(w, "%-12s %-7s %-7s %-10s %-9s %-7s %-7s %-10s %-8s\n",
		"Region", "Stock", "Lines", "Unresolved", "Shortage", "Clean", "Errors", "Allocated", "Coverage")
	fmt.Fprintf(w, "%-12s %-7s %-7s %-10s %-9s %-7s %-7s %-10s %-8s\n",
		"------------", "-------", "-------", "----------", "---------", "-------", "-------", "----------", "--------")

	for _, s := range report.Summaries() {
		stock := fmt.Sprintf("%d", s.StockRows)
		if s.StockFetchFailed {
			stock = "failed"
		}
		fmt.Fprintf(w, "%-12s %-7s %-7d %-10d %-9d %-7d %-7d %-10s %6.1f%%\n",
			s.Region,
			stock,
			s.Lines,
			s.Unresolved,
			s.Shortages,
			s.Clean,
			s.Errors,
			s.Allocated.String(),
			s.Coverage*100)
	}
	fmt.Fprintln(w)

	if report.HasFetchFailures() {
		fmt.Fprintf(w, "⚠️  Stock could not be fetched for some regions; their shipments are listed under Errors\n\n")
	}

	if config.Verbose && report.TotalShortages() > 0 {
		fmt.Fprintf(w, "🔻 Short keys:\n")
		for _, s := range report.Summaries() {
			if len(s.ShortKeys) > 0 {
				fmt.Fprintf(w, "  %s: %s\n", s.Region, strings.Join(s.ShortKeys, ", "))
			}
		}
		fmt.Fprintln(w)
	}

	if config.Verbose && len(config.InputFiles) > 0 {
		fmt.Fprintf(w, "📁 Input Files:\n")
		for name, path := range config.InputFiles {
			fmt.Fprintf(w, "  %s: %s\n", name, path)
		}
		fmt.Fprintln(w)
	}

	if report.OutputPath != "" {
		fmt.Fprintf(w, "💾 Workbook saved to: %s\n", report.OutputPath)
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(w io.Writer, report *dto.Report, config Config) error {
	payload := struct {
		*dto.Report
		Shipments      int     `json:"shipments"`
		Shortages      int     `json:"shortages"`
		ErrorRows      int     `json:"error_rows"`
		ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
	}{
		Report:         report,
		Shipments:      len(report.Shipments),
		Shortages:      report.TotalShortages(),
		ErrorRows:      len(report.Errors),
		ElapsedSeconds: config.Elapsed.Seconds(),
	}

	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := fmt.Fprintln(w, string(jsonData)); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}
