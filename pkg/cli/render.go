package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-sqladvisor/pkg/analyzer"
)

// RenderText writes a human readable report of bundle. hl may be nil.
func RenderText(w io.Writer, bundle *analyzer.Bundle, hl *SyntaxHighlighter) error {
	var out strings.Builder

	out.WriteString("Execution Plan\n")
	if len(bundle.Plan.Operations) == 0 {
		out.WriteString("  (no operations)\n")
	} else {
		rows := make([][]string, 0, len(bundle.Plan.Operations))
		for _, op := range bundle.Plan.Operations {
			// multi-line predicates would break the box
			desc := strings.Join(strings.Fields(op.Description), " ")
			rows = append(rows, []string{strconv.Itoa(op.ID), string(op.Type), strconv.Itoa(op.Cost), desc})
		}
		out.WriteString(formatMySQLTable([]string{"ID", "Type", "Cost", "Description"}, rows))
		out.WriteString("\n")
	}
	fmt.Fprintf(&out, "Total cost: %d (%d operation%s)\n", bundle.Plan.TotalCost, len(bundle.Plan.Operations), plural(len(bundle.Plan.Operations)))

	out.WriteString("\nWarnings\n")
	if len(bundle.Plan.Warnings) == 0 {
		out.WriteString("  none\n")
	}
	for _, warning := range bundle.Plan.Warnings {
		fmt.Fprintf(&out, "  ! %s\n", warning)
	}

	out.WriteString("\nRecommendations\n")
	if len(bundle.Recommendations) == 0 {
		out.WriteString("  No recommendations. The query looks well optimized.\n")
	}
	for i, rec := range bundle.Recommendations {
		fmt.Fprintf(&out, "  %d. [%s] [%s] %s\n", i+1,
			strings.ToUpper(string(rec.Type)), strings.ToUpper(string(rec.Severity)), rec.Description)
		if rec.ExampleCode == "" {
			continue
		}
		for _, line := range strings.Split(hl.HighlightSQL(rec.ExampleCode), "\n") {
			fmt.Fprintf(&out, "     %s\n", line)
		}
	}

	s := bundle.Statistics
	out.WriteString("\nStatistics\n")
	stats := [][2]string{
		{"Estimated rows", strconv.Itoa(s.EstimatedRows)},
		{"Actual rows", strconv.Itoa(s.ActualRows)},
		{"Estimated time", fmt.Sprintf("%d ms", s.EstimatedExecutionTime)},
		{"Actual time", fmt.Sprintf("%d ms", s.ActualExecutionTime)},
		{"CPU time", fmt.Sprintf("%d ms", s.CPUTime)},
		{"Memory grant", fmt.Sprintf("%d KB", s.MemoryGrant)},
		{"Logical reads", strconv.Itoa(s.LogicalReads)},
	}
	for _, kv := range stats {
		fmt.Fprintf(&out, "  %-16s %s\n", kv[0]+":", kv[1])
	}

	_, err := io.WriteString(w, out.String())
	return err
}

// RenderJSON writes bundle as indented JSON
func RenderJSON(w io.Writer, bundle *analyzer.Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	return nil
}

// Render dispatches on the output format name
func Render(w io.Writer, format string, bundle *analyzer.Bundle, hl *SyntaxHighlighter) error {
	switch strings.ToLower(format) {
	case "json":
		return RenderJSON(w, bundle)
	case "", "text":
		return RenderText(w, bundle, hl)
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", format)
	}
}

// RenderTables lists workspace cards, one row per index definition line
func RenderTables(w io.Writer, cards []analyzer.IndexEntry) error {
	if len(cards) == 0 {
		_, err := io.WriteString(w, "No tables defined. Add one with \\t <table> <index definitions>\n")
		return err
	}

	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		for i, line := range strings.Split(card.Definition, "\n") {
			name := card.Table
			if i > 0 {
				name = ""
			}
			rows = append(rows, []string{name, strings.TrimSpace(line)})
		}
	}
	_, err := fmt.Fprintf(w, "%s\n%d table%s\n", formatMySQLTable([]string{"Table", "Indexes"}, rows), len(cards), plural(len(cards)))
	return err
}

// formatMySQLTable draws rows in the mysql client box style
func formatMySQLTable(columns []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	colWidths := make([]int, len(columns))
	for i, col := range columns {
		colWidths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	var sep strings.Builder
	sep.WriteString("+")
	for _, width := range colWidths {
		sep.WriteString(strings.Repeat("-", width+2))
		sep.WriteString("+")
	}
	sepLine := sep.String()

	var result strings.Builder
	result.WriteString(sepLine)
	result.WriteString("\n|")
	for i, col := range columns {
		fmt.Fprintf(&result, " %-*s |", colWidths[i], col)
	}
	result.WriteString("\n")
	result.WriteString(sepLine)

	for _, row := range rows {
		result.WriteString("\n|")
		for i, cell := range row {
			fmt.Fprintf(&result, " %-*s |", colWidths[i], cell)
		}
	}
	result.WriteString("\n")
	result.WriteString(sepLine)

	return result.String()
}

// plural returns "s" if n != 1, empty string otherwise
func plural(n int) string {
	if n != 1 {
		return "s"
	}
	return ""
}
