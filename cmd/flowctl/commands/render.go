package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/garyjia/lottery-onboarding/internal/application/executor"
	"github.com/garyjia/lottery-onboarding/internal/application/flow"
	"github.com/garyjia/lottery-onboarding/internal/domain/entity"
	"github.com/garyjia/lottery-onboarding/internal/domain/event"
	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/garyjia/lottery-onboarding/internal/domain/workflow"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// newTable returns a bordered table whose header row is bold and whose
// cells are styled by cellFn.
func newTable(headers []string, rows [][]string, cellFn func(row []string, col int) lipgloss.Style) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headingStyle.Padding(0, 1)
			}
			if cellFn == nil || row < 0 || row >= len(rows) {
				return cellStyle
			}
			return cellFn(rows[row], col).Padding(0, 1)
		})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderView(w io.Writer, v flow.View) error {
	switch v.Status {
	case workflow.StatusTerminal:
		fmt.Fprintln(w, doneStyle.Render("All steps are done."))
	case workflow.StatusLoading:
		fmt.Fprint(w, "Loading")
		if v.Active != nil {
			fmt.Fprintf(w, " (%s waits for %s)", v.Active.ID, joinNames(v.Waiting))
		}
		fmt.Fprintln(w)
	default:
		fmt.Fprintf(w, "%s\n  %s\n", headingStyle.Render("Next: "+v.Active.ButtonText), v.Active.Prompt)
	}

	if v.Session.IsSubmitting {
		fmt.Fprintln(w, "A transaction is in progress.")
	}
	if v.Session.LastError != "" {
		fmt.Fprintln(w, errorStyle.Render("Last error: "+v.Session.LastError))
	}
	fmt.Fprintf(w, "Lucky number: %s\n\n", v.Session.LuckyNumber)

	rows := make([][]string, 0, len(v.Steps))
	for _, s := range v.Steps {
		invocable := ""
		if s.Invocable {
			invocable = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(s.Order), s.ID.String(), s.State.String(), invocable})
	}

	t := newTable([]string{"#", "STEP", "STATE", "INVOCABLE"}, rows, func(row []string, col int) lipgloss.Style {
		if col != 2 {
			return lipgloss.NewStyle()
		}
		switch workflow.StepState(row[col]) {
		case workflow.StepSatisfied:
			return doneStyle
		case workflow.StepActive:
			return headingStyle
		}
		return lipgloss.NewStyle()
	})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderResult(w io.Writer, res *executor.Result) {
	if res == nil || res.Receipt == nil {
		return
	}
	fmt.Fprintf(w, "%s confirmed in block %d (tx %s, gas %d)\n",
		res.StepID, res.Receipt.BlockNumber, res.Receipt.TxHash, res.Receipt.GasUsed)
}

func renderHistory(w io.Writer, records []*entity.ExecutionRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No executions recorded.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Timestamp.Format("2006-01-02 15:04:05"), r.StepID, r.EventType, r.TxHash})
	}

	t := newTable([]string{"TIME", "STEP", "EVENT", "TX"}, rows, func(row []string, col int) lipgloss.Style {
		if col != 2 {
			return lipgloss.NewStyle()
		}
		switch event.Type(row[col]) {
		case event.TypeStepConfirmed:
			return doneStyle
		case event.TypeStepFailed:
			return errorStyle
		}
		return lipgloss.NewStyle()
	})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func joinNames(names []signal.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
