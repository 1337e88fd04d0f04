package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type depositRequest struct {
	BankAccountID *string     `json:"bankAccountId"`
	DepositTypeID *string     `json:"depositTypeId"`
	Amount        *core.Money `json:"amount"`
	Note          *string     `json:"note"`
	Date          *string     `json:"date"`
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	f, err := parseDepositFilter(r.URL.Query(), mustUserID(r))
	if err != nil {
		writeError(w, r, "list_deposits", err)
		return
	}
	deposits, err := s.svc.Deposits.ListDeposits(r.Context(), f)
	if err != nil {
		writeError(w, r, "list_deposits", err)
		return
	}
	OK(deposits).Write(w)
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_deposit", err)
		return
	}
	if req.Amount == nil {
		writeError(w, r, "create_deposit", core.NewValidationError("amount", "is required"))
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		writeError(w, r, "create_deposit", err)
		return
	}

	d := core.Deposit{
		UserID: mustUserID(r),
		Amount: *req.Amount,
	}
	if req.BankAccountID != nil {
		d.BankAccountID = sanitizeInput(*req.BankAccountID)
	}
	if req.DepositTypeID != nil {
		d.DepositTypeID = sanitizeInput(*req.DepositTypeID)
	}
	if req.Note != nil {
		d.Note = sanitizeInput(*req.Note)
	}
	if date != nil {
		d.Date = *date
	}

	created, err := s.svc.Deposits.CreateDeposit(r.Context(), d)
	if err != nil {
		writeError(w, r, "create_deposit", err)
		return
	}
	Created(created).Message("Deposit recorded").Write(w)
}

func (s *Server) handleGetDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_deposit", err)
		return
	}
	d, err := s.svc.Deposits.GetDeposit(r.Context(), mustUserID(r), id)
	if err != nil {
		writeError(w, r, "get_deposit", err)
		return
	}
	OK(d).Write(w)
}

func (s *Server) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update_deposit", err)
		return
	}
	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update_deposit", err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		writeError(w, r, "update_deposit", err)
		return
	}

	d, err := s.svc.Deposits.UpdateDeposit(r.Context(), mustUserID(r), id, services.DepositUpdate{
		BankAccountID: sanitizeOptional(req.BankAccountID),
		DepositTypeID: sanitizeOptional(req.DepositTypeID),
		Amount:        req.Amount,
		Note:          sanitizeOptional(req.Note),
		Date:          date,
	})
	if err != nil {
		writeError(w, r, "update_deposit", err)
		return
	}
	OK(d).Message("Deposit updated").Write(w)
}

func (s *Server) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_deposit", err)
		return
	}
	if err := s.svc.Deposits.DeleteDeposit(r.Context(), mustUserID(r), id); err != nil {
		writeError(w, r, "delete_deposit", err)
		return
	}
	OK(nil).Message("Deposit deleted").Write(w)
}

func (s *Server) handleDepositSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseDepositFilter(r.URL.Query(), mustUserID(r))
	if err != nil {
		writeError(w, r, "deposit_summary", err)
		return
	}
	summary, err := s.svc.Deposits.GetDepositSummary(r.Context(), f)
	if err != nil {
		writeError(w, r, "deposit_summary", err)
		return
	}
	OK(summary).Write(w)
}
