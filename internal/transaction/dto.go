package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// The REST boundary speaks camelCase JSON while everything internal
// stays snake_case; these DTOs are the translation layer. Amounts cross
// the wire as strings normalized to two decimal places.

// TransactionResponse is the API shape of a single transaction.
type TransactionResponse struct {
	ID              int64     `json:"id"`
	Category        *int64    `json:"category"`
	Amount          string    `json:"amount"`
	DateTime        time.Time `json:"dateTime"`
	PaymentType     string    `json:"paymentType"`
	TransactionType string    `json:"transactionType"`
	Remarks         string    `json:"remarks"`
	CreatedBy       int64     `json:"createdBy"`
}

func ToResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		Category:        t.CategoryID,
		Amount:          t.Amount.StringFixed(2),
		DateTime:        t.DateTime,
		PaymentType:     t.PaymentType,
		TransactionType: t.TransactionType,
		Remarks:         t.Remarks,
		CreatedBy:       t.CreatedBy,
	}
}

func ToResponseSlice(txs []*Transaction) []TransactionResponse {
	result := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = ToResponse(t)
	}
	return result
}

// CreateTransactionDTO is the request payload for creating a transaction.
// Absent amount defaults to zero, absent dateTime to the current time.
type CreateTransactionDTO struct {
	Category        *int64     `json:"category"`
	Amount          *string    `json:"amount"`
	DateTime        *time.Time `json:"dateTime"`
	PaymentType     string     `json:"paymentType"`
	TransactionType string     `json:"transactionType"`
	Remarks         string     `json:"remarks"`
	CreatedBy       int64      `json:"createdBy"`
}

func (dto CreateTransactionDTO) Validate() error {
	if dto.PaymentType != "" && !IsValidPaymentType(dto.PaymentType) {
		return fmt.Errorf("invalid payment type: %s", dto.PaymentType)
	}
	if dto.TransactionType != "" && !IsValidTransactionType(dto.TransactionType) {
		return fmt.Errorf("invalid transaction type: %s", dto.TransactionType)
	}
	if dto.Amount != nil {
		if _, err := decimal.NewFromString(*dto.Amount); err != nil {
			return fmt.Errorf("invalid amount: %s", *dto.Amount)
		}
	}
	if dto.CreatedBy == 0 {
		return errors.New("createdBy is required")
	}
	if len(dto.Remarks) > 256 {
		return errors.New("remarks must be at most 256 characters")
	}
	return nil
}

// UpdateTransactionDTO is the full-replace (PUT) payload.
type UpdateTransactionDTO struct {
	Category        *int64    `json:"category"`
	Amount          string    `json:"amount"`
	DateTime        time.Time `json:"dateTime"`
	PaymentType     string    `json:"paymentType"`
	TransactionType string    `json:"transactionType"`
	Remarks         string    `json:"remarks"`
	CreatedBy       int64     `json:"createdBy"`
}

func (dto UpdateTransactionDTO) Validate() error {
	if !IsValidPaymentType(dto.PaymentType) {
		return fmt.Errorf("invalid payment type: %s", dto.PaymentType)
	}
	if !IsValidTransactionType(dto.TransactionType) {
		return fmt.Errorf("invalid transaction type: %s", dto.TransactionType)
	}
	if _, err := decimal.NewFromString(dto.Amount); err != nil {
		return fmt.Errorf("invalid amount: %s", dto.Amount)
	}
	if dto.CreatedBy == 0 {
		return errors.New("createdBy is required")
	}
	if len(dto.Remarks) > 256 {
		return errors.New("remarks must be at most 256 characters")
	}
	return nil
}

// PatchTransactionDTO is the partial-update (PATCH) payload; only
// submitted fields are applied.
type PatchTransactionDTO struct {
	Category        *int64     `json:"category"`
	Amount          *string    `json:"amount"`
	DateTime        *time.Time `json:"dateTime"`
	PaymentType     *string    `json:"paymentType"`
	TransactionType *string    `json:"transactionType"`
	Remarks         *string    `json:"remarks"`
	CreatedBy       *int64     `json:"createdBy"`
}

func (dto PatchTransactionDTO) Validate() error {
	if dto.PaymentType != nil && !IsValidPaymentType(*dto.PaymentType) {
		return fmt.Errorf("invalid payment type: %s", *dto.PaymentType)
	}
	if dto.TransactionType != nil && !IsValidTransactionType(*dto.TransactionType) {
		return fmt.Errorf("invalid transaction type: %s", *dto.TransactionType)
	}
	if dto.Amount != nil {
		if _, err := decimal.NewFromString(*dto.Amount); err != nil {
			return fmt.Errorf("invalid amount: %s", *dto.Amount)
		}
	}
	return nil
}

// ListFilters narrows the REST listing. Range bounds are inclusive.
type ListFilters struct {
	ID          *int64
	DateTimeMin *time.Time
	DateTimeMax *time.Time
	AmountMin   *decimal.Decimal
	AmountMax   *decimal.Decimal
	CreatedBy   *int64
	Search      string
}

// ExportFilters reconstructs the datatable filter state for the
// CSV/XLSX export, parsed from the referring page's query string.
type ExportFilters struct {
	Remarks         string
	PaymentType     string
	TransactionType string
	CategoryIDs     []int64
	OwnerID         *int64
}

// DashboardSummary carries the aggregate totals for the dashboard,
// each formatted to exactly two decimal places.
type DashboardSummary struct {
	TotalIncome      string `json:"totalIncome"`
	TotalExpenses    string `json:"totalExpenses"`
	RemainingBalance string `json:"remainingBalance"`
}
