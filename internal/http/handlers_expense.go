package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type expenseRequest struct {
	BankAccountID *string     `json:"bankAccountId"`
	CategoryID    *string     `json:"categoryId"`
	Amount        *core.Money `json:"amount"`
	Note          *string     `json:"note"`
	Date          *string     `json:"date"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseExpenseFilter(r.URL.Query(), mustUserID(r))
	if err != nil {
		writeError(w, r, "list_expenses", err)
		return
	}
	expenses, err := s.svc.Expenses.ListExpenses(r.Context(), f)
	if err != nil {
		writeError(w, r, "list_expenses", err)
		return
	}
	OK(expenses).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_expense", err)
		return
	}
	if req.Amount == nil {
		writeError(w, r, "create_expense", core.NewValidationError("amount", "is required"))
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		writeError(w, r, "create_expense", err)
		return
	}

	e := core.Expense{
		UserID: mustUserID(r),
		Amount: *req.Amount,
	}
	if req.BankAccountID != nil {
		e.BankAccountID = sanitizeInput(*req.BankAccountID)
	}
	if req.CategoryID != nil {
		e.CategoryID = sanitizeInput(*req.CategoryID)
	}
	if req.Note != nil {
		e.Note = sanitizeInput(*req.Note)
	}
	if date != nil {
		e.Date = *date
	}

	created, err := s.svc.Expenses.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, "create_expense", err)
		return
	}
	Created(created).Message("Expense recorded").Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_expense", err)
		return
	}
	e, err := s.svc.Expenses.GetExpense(r.Context(), mustUserID(r), id)
	if err != nil {
		writeError(w, r, "get_expense", err)
		return
	}
	OK(e).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update_expense", err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update_expense", err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		writeError(w, r, "update_expense", err)
		return
	}

	e, err := s.svc.Expenses.UpdateExpense(r.Context(), mustUserID(r), id, services.ExpenseUpdate{
		BankAccountID: sanitizeOptional(req.BankAccountID),
		CategoryID:    sanitizeOptional(req.CategoryID),
		Amount:        req.Amount,
		Note:          sanitizeOptional(req.Note),
		Date:          date,
	})
	if err != nil {
		writeError(w, r, "update_expense", err)
		return
	}
	OK(e).Message("Expense updated").Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_expense", err)
		return
	}
	if err := s.svc.Expenses.DeleteExpense(r.Context(), mustUserID(r), id); err != nil {
		writeError(w, r, "delete_expense", err)
		return
	}
	OK(nil).Message("Expense deleted").Write(w)
}

// handleExpenseSummary totals expenses over [from, to], grouped by category.
func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseExpenseFilter(r.URL.Query(), mustUserID(r))
	if err != nil {
		writeError(w, r, "expense_summary", err)
		return
	}
	summary, err := s.svc.Expenses.GetExpenseSummary(r.Context(), f)
	if err != nil {
		writeError(w, r, "expense_summary", err)
		return
	}
	OK(summary).Write(w)
}

type recurringRequest struct {
	CategoryID string     `json:"categoryId"`
	Amount     core.Money `json:"amount"`
	Note       string     `json:"note"`
	Frequency  string     `json:"frequency"`
	StartDate  string     `json:"startDate"`
	EndDate    *string    `json:"endDate"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Recurring.ListRecurring(r.Context(), mustUserID(r))
	if err != nil {
		writeError(w, r, "list_recurring", err)
		return
	}
	OK(items).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	end, err := parseOptionalDate("endDate", req.EndDate)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}

	re, err := s.svc.Recurring.CreateRecurring(r.Context(), core.RecurringExpense{
		UserID:     mustUserID(r),
		CategoryID: sanitizeInput(req.CategoryID),
		Amount:     req.Amount,
		Note:       sanitizeInput(req.Note),
		Frequency:  freq,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	Created(re).Message("Recurring expense scheduled").Write(w)
}

// handleRunRecurring materializes every template due now.
func (s *Server) handleRunRecurring(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Recurring.ProcessDueExpenses(r.Context(), s.now())
	if err != nil {
		writeError(w, r, "run_recurring", err)
		return
	}
	OK(map[string]int{"processed": n}).Write(w)
}

// handleRunReconcile recomputes every budget's spent amount from the ledger.
func (s *Server) handleRunReconcile(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Budgets.RecalculateAll(r.Context())
	if err != nil {
		writeError(w, r, "run_reconcile", err)
		return
	}
	failed := make([]string, 0, len(res.Failed))
	for id := range res.Failed {
		failed = append(failed, id)
	}
	OK(map[string]any{"checked": res.Checked, "failed": failed}).Write(w)
}
