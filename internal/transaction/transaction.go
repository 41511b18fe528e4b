package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
)

const (
	PaymentTypeCash    = "Cash"
	PaymentTypeCard    = "Card"
	PaymentTypeAccount = "Account"

	TransactionTypeIncome        = "Income"
	TransactionTypeExpenses      = "Expenses"
	TransactionTypeMiscellaneous = "Miscellaneous"
)

var PaymentTypes = []string{PaymentTypeCash, PaymentTypeCard, PaymentTypeAccount}

var TransactionTypes = []string{
	TransactionTypeIncome,
	TransactionTypeExpenses,
	TransactionTypeMiscellaneous,
}

func IsValidPaymentType(s string) bool {
	for _, t := range PaymentTypes {
		if t == s {
			return true
		}
	}
	return false
}

func IsValidTransactionType(s string) bool {
	for _, t := range TransactionTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Transaction is the domain shape of a ledger entry. CategoryName and
// CreatedByUsername are denormalized from the preloaded relations for
// rendering and export.
type Transaction struct {
	ID                int64
	CategoryID        *int64
	CategoryName      string
	Amount            decimal.Decimal
	DateTime          time.Time
	PaymentType       string
	TransactionType   string
	Remarks           string
	CreatedBy         int64
	CreatedByUsername string
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	tx := &Transaction{
		ID:              t.ID,
		CategoryID:      t.CategoryID,
		Amount:          t.Amount,
		DateTime:        t.DateTime,
		PaymentType:     t.PaymentType,
		TransactionType: t.TransactionType,
		Remarks:         t.Remarks,
		CreatedBy:       t.CreatedBy,
	}
	if t.Category != nil {
		tx.CategoryName = t.Category.Name
	}
	if t.Creator != nil {
		tx.CreatedByUsername = t.Creator.Username
	}
	return tx
}

func FromDataModelSlice(records []*transactionDatamodel.Transaction) []*Transaction {
	result := make([]*Transaction, len(records))
	for i, r := range records {
		result[i] = FromDataModel(r)
	}
	return result
}

func ToDataModel(t *Transaction) *transactionDatamodel.Transaction {
	return &transactionDatamodel.Transaction{
		ID:              t.ID,
		CategoryID:      t.CategoryID,
		Amount:          t.Amount,
		DateTime:        t.DateTime,
		PaymentType:     t.PaymentType,
		TransactionType: t.TransactionType,
		Remarks:         t.Remarks,
		CreatedBy:       t.CreatedBy,
	}
}
