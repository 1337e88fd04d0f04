package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// BudgetAlertMessage announces a newly created budget alert to downstream consumers.
type BudgetAlertMessage struct {
	AlertID    string         `json:"alertId"`
	BudgetID   string         `json:"budgetId"`
	UserID     string         `json:"userId"`
	AlertType  core.AlertType `json:"alertType"`
	Message    string         `json:"message"`
	Month      int            `json:"month"`
	Year       int            `json:"year"`
	SpentCents int64          `json:"spentCents"`
	LimitCents int64          `json:"limitCents"`
	Timestamp  time.Time      `json:"timestamp"`
}

func NewBudgetAlertMessage(alert core.BudgetAlert, budget core.Budget) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		AlertID:    alert.ID,
		BudgetID:   budget.ID,
		UserID:     budget.UserID,
		AlertType:  alert.AlertType,
		Message:    alert.Message,
		Month:      budget.Month,
		Year:       budget.Year,
		SpentCents: budget.SpentAmount.Cents,
		LimitCents: budget.AmountLimit.Cents,
		Timestamp:  alert.CreatedAt,
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
