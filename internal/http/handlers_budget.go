package http

import (
	"fmt"
	"net/http"
	"strconv"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

type budgetRequest struct {
	Month               int         `json:"month"`
	Year                int         `json:"year"`
	AmountLimit         *core.Money `json:"amountLimit"`
	ThresholdPercentage *int        `json:"thresholdPercentage"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, err := parseOptionalYear(r.URL.Query())
	if err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}
	budgets, err := s.svc.Budgets.ListBudgets(r.Context(), mustUserID(r), year)
	if err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}
	OK(budgets).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_budget", err)
		return
	}
	in := services.BudgetInput{Month: req.Month, Year: req.Year}
	if req.AmountLimit != nil {
		in.AmountLimit = *req.AmountLimit
	}
	if req.ThresholdPercentage != nil {
		in.ThresholdPercentage = *req.ThresholdPercentage
	}

	b, err := s.svc.Budgets.CreateBudget(r.Context(), mustUserID(r), in)
	if err != nil {
		writeError(w, r, "create_budget", err)
		return
	}
	Created(b).Message("Budget created").Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_budget", err)
		return
	}
	b, err := s.svc.Budgets.GetBudget(r.Context(), mustUserID(r), id)
	if err != nil {
		writeError(w, r, "get_budget", err)
		return
	}
	OK(b).Write(w)
}

func (s *Server) handleCurrentBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.GetCurrentBudget(r.Context(), mustUserID(r))
	if err != nil {
		writeError(w, r, "current_budget", err)
		return
	}
	OK(b).Write(w)
}

// handleUpdateBudget changes the limit or threshold. Month and year are fixed
// once a budget exists.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update_budget", err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update_budget", err)
		return
	}
	if req.Month != 0 || req.Year != 0 {
		writeError(w, r, "update_budget", core.NewValidationError("month", "and year cannot be changed"))
		return
	}
	b, err := s.svc.Budgets.UpdateBudget(r.Context(), mustUserID(r), id, services.BudgetUpdate{
		AmountLimit:         req.AmountLimit,
		ThresholdPercentage: req.ThresholdPercentage,
	})
	if err != nil {
		writeError(w, r, "update_budget", err)
		return
	}
	OK(b).Message("Budget updated").Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_budget", err)
		return
	}
	if err := s.svc.Budgets.DeleteBudget(r.Context(), mustUserID(r), id); err != nil {
		writeError(w, r, "delete_budget", err)
		return
	}
	OK(nil).Message("Budget deleted").Write(w)
}

func (s *Server) handleRecalcBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "recalc_budget", err)
		return
	}
	spent, err := s.svc.Budgets.RecalculateUserBudget(r.Context(), mustUserID(r), id)
	if err != nil {
		writeError(w, r, "recalc_budget", err)
		return
	}
	OK(map[string]any{"budgetId": id, "spentAmount": spent}).Message("Budget recalculated").Write(w)
}

func (s *Server) summaryYear(r *http.Request) (int, error) {
	year, err := parseOptionalYear(r.URL.Query())
	if err != nil {
		return 0, err
	}
	if year == nil {
		return ParseMonthParams(r.URL.Query(), s.now()).Year, nil
	}
	return *year, nil
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	year, err := s.summaryYear(r)
	if err != nil {
		writeError(w, r, "budget_summary", err)
		return
	}
	summary, err := s.svc.Budgets.GetBudgetSummary(r.Context(), mustUserID(r), year)
	if err != nil {
		writeError(w, r, "budget_summary", err)
		return
	}
	OK(summary).Write(w)
}

// handleBudgetSummaryPDF renders the yearly summary as a downloadable PDF.
func (s *Server) handleBudgetSummaryPDF(w http.ResponseWriter, r *http.Request) {
	userID := mustUserID(r)
	year, err := s.summaryYear(r)
	if err != nil {
		writeError(w, r, "budget_summary_pdf", err)
		return
	}
	summary, err := s.svc.Budgets.GetBudgetSummary(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, "budget_summary_pdf", err)
		return
	}
	user, err := s.svc.Users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, "budget_summary_pdf", err)
		return
	}

	pdf, err := report.BudgetSummaryPDF(summary, user.Name)
	if err != nil {
		writeError(w, r, "budget_summary_pdf", err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget summary exported",
		applog.FieldYear, year, "bytes", len(pdf))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="budget-summary-%d.pdf"`, year))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	isRead, err := parseOptionalBool(r.URL.Query(), "isRead")
	if err != nil {
		writeError(w, r, "list_alerts", err)
		return
	}
	alerts, err := s.svc.Budgets.GetBudgetAlerts(r.Context(), mustUserID(r), isRead)
	if err != nil {
		writeError(w, r, "list_alerts", err)
		return
	}
	OK(alerts).Write(w)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "mark_alert_read", err)
		return
	}
	if err := s.svc.Budgets.MarkAlertAsRead(r.Context(), mustUserID(r), id); err != nil {
		writeError(w, r, "mark_alert_read", err)
		return
	}
	OK(nil).Message("Alert marked as read").Write(w)
}
