package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type authResponse struct {
	User  core.User `json:"user"`
	Token string    `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "register", err)
		return
	}
	user, token, err := s.svc.Users.Register(r.Context(), req.Email, sanitizeInput(req.Name), req.Password)
	if err != nil {
		writeError(w, r, "register", err)
		return
	}
	Created(authResponse{User: user, Token: token}).Message("Registration successful").Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "login", err)
		return
	}
	user, token, err := s.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	OK(authResponse{User: user, Token: token}).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.GetUser(r.Context(), mustUserID(r))
	if err != nil {
		writeError(w, r, "get_user", err)
		return
	}
	OK(user).Write(w)
}

type accountRequest struct {
	Name          *string `json:"name"`
	BankName      *string `json:"bankName"`
	AccountNumber *string `json:"accountNumber"`
	IsDefault     *bool   `json:"isDefault"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.ListAccounts(r.Context(), mustUserID(r))
	if err != nil {
		writeError(w, r, "list_accounts", err)
		return
	}
	OK(accounts).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_account", err)
		return
	}
	a := core.BankAccount{UserID: mustUserID(r)}
	if req.Name != nil {
		a.Name = sanitizeInput(*req.Name)
	}
	if req.BankName != nil {
		a.BankName = sanitizeInput(*req.BankName)
	}
	if req.AccountNumber != nil {
		a.AccountNumber = sanitizeInput(*req.AccountNumber)
	}
	if req.IsDefault != nil {
		a.IsDefault = *req.IsDefault
	}

	created, err := s.svc.Accounts.CreateAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, "create_account", err)
		return
	}
	Created(created).Message("Bank account created").Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_account", err)
		return
	}
	a, err := s.svc.Accounts.GetAccount(r.Context(), mustUserID(r), id)
	if err != nil {
		writeError(w, r, "get_account", err)
		return
	}
	OK(a).Write(w)
}

// handleUpdateAccount edits account metadata. The balance is owned by the ledger
// and cannot be set here.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update_account", err)
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update_account", err)
		return
	}
	a, err := s.svc.Accounts.UpdateAccount(r.Context(), mustUserID(r), id, services.AccountUpdate{
		Name:          sanitizeOptional(req.Name),
		BankName:      sanitizeOptional(req.BankName),
		AccountNumber: sanitizeOptional(req.AccountNumber),
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		writeError(w, r, "update_account", err)
		return
	}
	OK(a).Message("Bank account updated").Write(w)
}

type lookupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, "list_categories", err)
		return
	}
	OK(cats).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_category", err)
		return
	}
	c, err := s.svc.Catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, "get_category", err)
		return
	}
	OK(c).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_category", err)
		return
	}
	c, err := s.svc.Catalog.CreateCategory(r.Context(), core.ExpenseCategory{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Icon:        sanitizeInput(req.Icon),
		Color:       sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(w, r, "create_category", err)
		return
	}
	Created(c).Message("Category created").Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update_category", err)
		return
	}
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update_category", err)
		return
	}
	c, err := s.svc.Catalog.UpdateCategory(r.Context(), core.ExpenseCategory{
		ID:          id,
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Icon:        sanitizeInput(req.Icon),
		Color:       sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(w, r, "update_category", err)
		return
	}
	OK(c).Message("Category updated").Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_category", err)
		return
	}
	if err := s.svc.Catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, "delete_category", err)
		return
	}
	OK(nil).Message("Category deleted").Write(w)
}

func (s *Server) handleListDepositTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.Catalog.ListDepositTypes(r.Context())
	if err != nil {
		writeError(w, r, "list_deposit_types", err)
		return
	}
	OK(types).Write(w)
}

func (s *Server) handleCreateDepositType(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_deposit_type", err)
		return
	}
	d, err := s.svc.Catalog.CreateDepositType(r.Context(), core.DepositType{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Icon:        sanitizeInput(req.Icon),
		Color:       sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(w, r, "create_deposit_type", err)
		return
	}
	Created(d).Message("Deposit type created").Write(w)
}
