package core

import (
	"strings"
	"time"
)

// ExpenseFilter narrows an expense listing. Zero fields do not filter.
type ExpenseFilter struct {
	UserID        string
	From          *time.Time
	To            *time.Time
	BankAccountID string
	CategoryID    string
	Include       Include
}

// DepositFilter narrows a deposit listing. Zero fields do not filter.
type DepositFilter struct {
	UserID        string
	From          *time.Time
	To            *time.Time
	BankAccountID string
	DepositTypeID string
	Include       Include
}

// Include selects related records to attach to listed entries.
type Include struct {
	Category    bool
	BankAccount bool
	DepositType bool
}

// IncludeAll is used when a caller does not ask for specific relations.
var IncludeAll = Include{Category: true, BankAccount: true, DepositType: true}

// ParseInclude validates a comma separated relation list against allowed.
// An empty list yields IncludeAll.
func ParseInclude(raw string, allowed ...string) (Include, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return IncludeAll, nil
	}
	var inc Include
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ok := false
		for _, a := range allowed {
			if a == name {
				ok = true
				break
			}
		}
		if !ok {
			return Include{}, NewValidationError("include", "unknown relation "+name)
		}
		switch name {
		case "category":
			inc.Category = true
		case "bankAccount":
			inc.BankAccount = true
		case "depositType":
			inc.DepositType = true
		}
	}
	return inc, nil
}
