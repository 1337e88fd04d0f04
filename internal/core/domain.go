package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

const (
	AlertThresholdReached AlertType = "THRESHOLD_REACHED"
	AlertExceeded         AlertType = "EXCEEDED"
)

// DefaultThresholdPercentage is used when a budget is created without one.
const DefaultThresholdPercentage = 80

type (
	Frequency string
	AlertType string

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	BankAccount struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		Name          string    `json:"name"`
		BankName      string    `json:"bankName"`
		AccountNumber string    `json:"accountNumber"`
		IsDefault     bool      `json:"isDefault"`
		Balance       Money     `json:"balance"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	ExpenseCategory struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Icon        string `json:"icon,omitempty"`
		Color       string `json:"color,omitempty"`
	}

	DepositType struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Icon        string `json:"icon,omitempty"`
		Color       string `json:"color,omitempty"`
	}

	Expense struct {
		ID                 string    `json:"id"`
		UserID             string    `json:"userId"`
		BankAccountID      string    `json:"bankAccountId"`
		CategoryID         string    `json:"categoryId"`
		Amount             Money     `json:"amount"`
		Note               string    `json:"note,omitempty"`
		Date               time.Time `json:"date"`
		IsRecurring        bool      `json:"isRecurring"`
		RecurringExpenseID string    `json:"recurringExpenseId,omitempty"`
		ReceiptID          string    `json:"receiptId,omitempty"`
		CreatedAt          time.Time `json:"createdAt"`

		Category    *ExpenseCategory `json:"category,omitempty"`
		BankAccount *BankAccount     `json:"bankAccount,omitempty"`
	}

	Deposit struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		BankAccountID string    `json:"bankAccountId"`
		DepositTypeID string    `json:"depositTypeId"`
		Amount        Money     `json:"amount"`
		Note          string    `json:"note,omitempty"`
		Date          time.Time `json:"date"`
		CreatedAt     time.Time `json:"createdAt"`

		DepositType *DepositType `json:"depositType,omitempty"`
		BankAccount *BankAccount `json:"bankAccount,omitempty"`
	}

	RecurringExpense struct {
		ID          string     `json:"id"`
		UserID      string     `json:"userId"`
		CategoryID  string     `json:"categoryId"`
		Amount      Money      `json:"amount"`
		Note        string     `json:"note,omitempty"`
		Frequency   Frequency  `json:"frequency"`
		StartDate   time.Time  `json:"startDate"`
		EndDate     *time.Time `json:"endDate,omitempty"`
		NextDueDate time.Time  `json:"nextDueDate"`
		IsActive    bool       `json:"isActive"`
	}

	Budget struct {
		ID                  string        `json:"id"`
		UserID              string        `json:"userId"`
		Month               int           `json:"month"`
		Year                int           `json:"year"`
		AmountLimit         Money         `json:"amountLimit"`
		ThresholdPercentage int           `json:"thresholdPercentage"`
		SpentAmount         Money         `json:"spentAmount"`
		CreatedAt           time.Time     `json:"createdAt"`
		UpdatedAt           time.Time     `json:"updatedAt"`
		Alerts              []BudgetAlert `json:"alerts,omitempty"`
	}

	BudgetAlert struct {
		ID        string    `json:"id"`
		BudgetID  string    `json:"budgetId"`
		AlertType AlertType `json:"alertType"`
		Message   string    `json:"message"`
		IsRead    bool      `json:"isRead"`
		CreatedAt time.Time `json:"createdAt"`
		Budget    *Budget   `json:"budget,omitempty"`
	}
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ParseFrequency accepts any letter case.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", NewValidationError("frequency", "must be one of DAILY, WEEKLY, MONTHLY, YEARLY")
	}
	return f, nil
}

func (t AlertType) Valid() bool {
	return t == AlertThresholdReached || t == AlertExceeded
}

// MonthRange returns the half-open UTC interval [first of month, first of next month).
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Remaining is the unspent part of the limit; negative once exceeded.
func (b Budget) Remaining() Money {
	return b.AmountLimit.Sub(b.SpentAmount)
}

// Dates outside this year range cannot round-trip through storage.
const (
	MinYear = 1970
	MaxYear = 9999
)

func validateDate(field string, t time.Time) error {
	if y := t.UTC().Year(); y < MinYear || y > MaxYear {
		return NewValidationError(field, fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear))
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if b.Year < MinYear || b.Year > MaxYear {
		return NewValidationError("year", "out of range")
	}
	if b.AmountLimit.Cents <= 0 {
		return NewValidationError("amountLimit", "must be greater than zero")
	}
	if b.ThresholdPercentage < 1 || b.ThresholdPercentage > 100 {
		return NewValidationError("thresholdPercentage", "must be between 1 and 100")
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(e.BankAccountID) == "" {
		return NewValidationError("bankAccountId", "is required")
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return NewValidationError("categoryId", "is required")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDate("date", e.Date); err != nil {
		return err
	}
	if e.IsRecurring && strings.TrimSpace(e.RecurringExpenseID) == "" {
		return NewValidationError("recurringExpenseId", "is required when isRecurring is true")
	}
	if len(e.Note) > 500 {
		return NewValidationError("note", "too long (max 500 characters)")
	}
	return nil
}

func (d Deposit) Validate() error {
	if strings.TrimSpace(d.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(d.BankAccountID) == "" {
		return NewValidationError("bankAccountId", "is required")
	}
	if strings.TrimSpace(d.DepositTypeID) == "" {
		return NewValidationError("depositTypeId", "is required")
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDate("date", d.Date); err != nil {
		return err
	}
	if len(d.Note) > 500 {
		return NewValidationError("note", "too long (max 500 characters)")
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if strings.TrimSpace(re.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(re.CategoryID) == "" {
		return NewValidationError("categoryId", "is required")
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if !re.Frequency.Valid() {
		return NewValidationError("frequency", "must be one of DAILY, WEEKLY, MONTHLY, YEARLY")
	}
	if re.StartDate.IsZero() {
		return NewValidationError("startDate", "is required")
	}
	if err := validateDate("startDate", re.StartDate); err != nil {
		return err
	}
	if re.EndDate != nil {
		if err := validateDate("endDate", *re.EndDate); err != nil {
			return err
		}
		if re.EndDate.Before(re.StartDate) {
			return NewValidationError("endDate", "must not be before startDate")
		}
	}
	return nil
}

func (a BankAccount) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return NewValidationError("userId", "is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if len(a.Name) > 100 {
		return NewValidationError("name", "too long (max 100 characters)")
	}
	return nil
}
