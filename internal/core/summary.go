package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthBudgetSummary is one month's entry in a yearly budget summary.
type MonthBudgetSummary struct {
	Month      int             `json:"month"`
	Limit      Money           `json:"limit"`
	Spent      Money           `json:"spent"`
	Remaining  Money           `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

// BudgetSummary aggregates a user's budgets for one year.
type BudgetSummary struct {
	Year                   int                  `json:"year"`
	TotalBudget            Money                `json:"totalBudget"`
	TotalSpent             Money                `json:"totalSpent"`
	TotalRemaining         Money                `json:"totalRemaining"`
	AverageSpentPercentage decimal.Decimal      `json:"averageSpentPercentage"`
	Months                 []MonthBudgetSummary `json:"months"`
}

// SummarizeBudgets builds the yearly summary from budgets sorted by month.
func SummarizeBudgets(year int, budgets []Budget) BudgetSummary {
	s := BudgetSummary{Year: year, Months: make([]MonthBudgetSummary, 0, len(budgets))}
	for _, b := range budgets {
		remaining := b.Remaining()
		s.TotalBudget = s.TotalBudget.Add(b.AmountLimit)
		s.TotalSpent = s.TotalSpent.Add(b.SpentAmount)
		s.TotalRemaining = s.TotalRemaining.Add(remaining)
		s.Months = append(s.Months, MonthBudgetSummary{
			Month:      b.Month,
			Limit:      b.AmountLimit,
			Spent:      b.SpentAmount,
			Remaining:  remaining,
			Percentage: Percentage(b.SpentAmount, b.AmountLimit),
		})
	}
	s.AverageSpentPercentage = Percentage(s.TotalSpent, s.TotalBudget)
	return s
}

// CategoryAmount is an amount aggregated by category or deposit type name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count"`
}

// LedgerSummary totals expenses or deposits over a date range.
type LedgerSummary struct {
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	TotalAmount Money            `json:"totalAmount"`
	Count       int              `json:"count"`
	ByCategory  []CategoryAmount `json:"byCategory"`
}

// Total recomputes TotalAmount and Count from ByCategory.
func (s *LedgerSummary) Total() {
	s.TotalAmount, s.Count = Money{}, 0
	for _, c := range s.ByCategory {
		s.TotalAmount = s.TotalAmount.Add(c.Amount)
		s.Count += c.Count
	}
}
