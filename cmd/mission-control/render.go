package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rcourtman/mission-control/internal/unifiedresources"
	"golang.org/x/term"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output %q (want table or json)", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderTable draws rows under headers. The status column, if any, is
// colored by severity.
func renderTable(headers []string, rows [][]string, statusCol int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == statusCol && row >= 0 && row < len(rows) {
				return statusStyle(rows[row][col]).Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

func statusStyle(status string) lipgloss.Style {
	switch unifiedresources.StatusSeverity(status) {
	case 0:
		return errStyle
	case 1:
		return warnStyle
	case 2, 3:
		return dimStyle
	default:
		return okStyle
	}
}

func resourceRows(resources []unifiedresources.Resource) [][]string {
	rows := make([][]string, 0, len(resources))
	for _, r := range resources {
		rows = append(rows, []string{
			r.Name,
			string(r.Type),
			string(r.Source),
			orDash(r.Status),
			orDash(r.Namespace),
			orDash(r.Address),
			orDash(r.SyncStatus),
			formatTime(r.LastUpdated),
		})
	}
	return rows
}

var resourceHeaders = []string{"NAME", "TYPE", "SOURCE", "STATUS", "NAMESPACE", "ADDRESS", "SYNC", "UPDATED"}

// renderView prints the unified table followed by error notes. While any
// collection is loading only the loading line is shown.
func renderView(w io.Writer, view unifiedresources.View) {
	view = view.Settled()
	switch {
	case view.IsLoading:
		fmt.Fprintln(w, dimStyle.Render("Loading..."))
	case len(view.Resources) == 0:
		fmt.Fprintln(w, dimStyle.Render("No resources match."))
	default:
		fmt.Fprintln(w, renderTable(resourceHeaders, resourceRows(view.Resources), 3))
	}
	if !view.IsLoading {
		renderFooter(w, view)
	}
	renderErrors(w, view.Errors)
}

func renderFooter(w io.Writer, view unifiedresources.View) {
	counts := view.Counts()
	parts := make([]string, 0, len(unifiedresources.AllSources))
	for _, s := range unifiedresources.AllSources {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts.BySource[s]))
	}
	fmt.Fprintf(w, "%d resources (%s)\n", counts.Total, strings.Join(parts, ", "))
}

func renderErrors(w io.Writer, errs []unifiedresources.SourceError) {
	for _, e := range errs {
		fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("%s: %s", e.Collection, e.Message)))
	}
}

// renderFields prints label/value pairs as a two-column table.
func renderFields(w io.Writer, fields [][2]string) {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f[0], orDash(f[1])})
	}
	fmt.Fprintln(w, renderTable([]string{"FIELD", "VALUE"}, rows, -1))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return okStyle.Render("yes")
	}
	return errStyle.Render("no")
}
