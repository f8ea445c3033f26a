package transaction

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type DepositDTO struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type WithdrawDTO struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type InternalTransferDTO struct {
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
}

type ExternalTransferDTO struct {
	SourceAccountID          int64           `json:"source_account_id"`
	DestinationAccountNumber string          `json:"destination_account_number"`
	Amount                   decimal.Decimal `json:"amount"`
	Description              string          `json:"description"`
}

type TopupDTO struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// ParseFilter reads history filters from query parameters. Dates are
// RFC 3339 or plain yyyy-mm-dd.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	f.Type = q.Get("type")
	switch f.Type {
	case "", TypeDeposit, TypeWithdrawal, TypeInternal, TypeExternal:
	default:
		return f, ValidationError{Msg: "unknown transaction type"}
	}

	parseDate := func(raw string) (*time.Time, error) {
		if raw == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, ValidationError{Msg: "invalid date, expected RFC 3339 or yyyy-mm-dd"}
		}
		return &t, nil
	}

	var err error
	if f.From, err = parseDate(q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseDate(q.Get("to")); err != nil {
		return f, err
	}

	parseAmount := func(raw string) (*decimal.Decimal, error) {
		if raw == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, ValidationError{Msg: "invalid amount filter"}
		}
		return &d, nil
	}

	if f.MinAmount, err = parseAmount(q.Get("min_amount")); err != nil {
		return f, err
	}
	if f.MaxAmount, err = parseAmount(q.Get("max_amount")); err != nil {
		return f, err
	}

	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return f, ValidationError{Msg: "invalid limit"}
		}
		f.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return f, ValidationError{Msg: "invalid offset"}
		}
		f.Offset = n
	}

	return f, nil
}
