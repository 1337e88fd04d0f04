// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// JSON bodies, date values and the typed list filters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, defaulting
// to now. Unparseable or out-of-range values fall back to the default.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}

	return params
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var ve *core.ValidationError
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &ve):
			return ve
		case errors.As(err, &mbe):
			return core.NewValidationError("body", "too large")
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "is required")
		default:
			return core.NewValidationError("body", "is not valid JSON: "+err.Error())
		}
	}
	if dec.More() {
		return core.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

// parseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, core.NewValidationError(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

// parseOptionalDate parses s when present. A nil or blank s yields nil.
func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDateRange reads from/to query parameters. The to date is inclusive on
// the wire and returned as an exclusive bound.
func parseDateRange(query url.Values) (from, to *time.Time, err error) {
	if v := query.Get("from"); v != "" {
		if from, err = parseOptionalDate("from", &v); err != nil {
			return nil, nil, err
		}
	}
	if v := query.Get("to"); v != "" {
		t, err := parseDate("to", v)
		if err != nil {
			return nil, nil, err
		}
		if t.Equal(truncateDay(t)) {
			t = t.AddDate(0, 0, 1)
		}
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, core.NewValidationError("from", "must be before to")
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseExpenseFilter builds the expense list filter for userID from the query string.
func parseExpenseFilter(query url.Values, userID string) (core.ExpenseFilter, error) {
	from, to, err := parseDateRange(query)
	if err != nil {
		return core.ExpenseFilter{}, err
	}
	inc, err := core.ParseInclude(query.Get("include"), "category", "bankAccount")
	if err != nil {
		return core.ExpenseFilter{}, err
	}
	return core.ExpenseFilter{
		UserID:        userID,
		From:          from,
		To:            to,
		BankAccountID: sanitizeInput(query.Get("bankAccountId")),
		CategoryID:    sanitizeInput(query.Get("categoryId")),
		Include:       inc,
	}, nil
}

// parseDepositFilter builds the deposit list filter for userID from the query string.
func parseDepositFilter(query url.Values, userID string) (core.DepositFilter, error) {
	from, to, err := parseDateRange(query)
	if err != nil {
		return core.DepositFilter{}, err
	}
	inc, err := core.ParseInclude(query.Get("include"), "depositType", "bankAccount")
	if err != nil {
		return core.DepositFilter{}, err
	}
	return core.DepositFilter{
		UserID:        userID,
		From:          from,
		To:            to,
		BankAccountID: sanitizeInput(query.Get("bankAccountId")),
		DepositTypeID: sanitizeInput(query.Get("depositTypeId")),
		Include:       inc,
	}, nil
}

// parseOptionalBool reads a true/false query parameter. Absent yields nil.
func parseOptionalBool(query url.Values, key string) (*bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, core.NewValidationError(key, "must be true or false")
	}
	return &b, nil
}

// parseOptionalYear reads the year query parameter. Absent yields nil.
func parseOptionalYear(query url.Values) (*int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return nil, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return nil, core.NewValidationError("year", fmt.Sprintf("must be a year, got %q", v))
	}
	return &y, nil
}

// sanitizeInput removes control characters other than tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizeOptional applies sanitizeInput through a pointer.
func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
