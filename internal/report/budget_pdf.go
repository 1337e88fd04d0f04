// Package report renders downloadable documents from computed summaries.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"fintrack/internal/core"
)

// BudgetSummaryPDF renders a yearly budget summary as an A4 table, one row per budgeted month.
func BudgetSummaryPDF(s core.BudgetSummary, owner string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Budget Summary %d", s.Year), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, fmt.Sprintf("Budget Summary %d", s.Year))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	if owner != "" {
		pdf.Cell(0, 8, "Prepared for: "+owner)
		pdf.Ln(6)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Total budget: %s", s.TotalBudget.Dollars()))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Total spent: %s (%s%%)", s.TotalSpent.Dollars(), s.AverageSpentPercentage.StringFixed(2)))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Total remaining: %s", s.TotalRemaining.Dollars()))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(40, 7, "Month", "B", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, "Limit", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Spent", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Remaining", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Used", "B", 0, "R", false, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	for _, m := range s.Months {
		over := m.Spent.Cents >= m.Limit.Cents
		if over {
			pdf.SetTextColor(200, 30, 30)
		}
		pdf.CellFormat(40, 7, time.Month(m.Month).String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, m.Limit.Dollars(), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, m.Spent.Dollars(), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, m.Remaining.Dollars(), "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, m.Percentage.StringFixed(2)+"%", "", 0, "R", false, 0, "")
		pdf.Ln(7)
		if over {
			pdf.SetTextColor(0, 0, 0)
		}
	}
	if len(s.Months) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 7, "No budgets defined for this year.")
		pdf.Ln(7)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render budget summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}
