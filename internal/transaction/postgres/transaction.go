package postgres

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
	"github.com/VivaainNg/finance-tracker/internal/transaction"
)

// TransactionRepository implements the transaction.Repository interface using GORM
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transaction.Repository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) List(filters transaction.ListFilters) ([]*transactionDatamodel.Transaction, error) {
	var records []*transactionDatamodel.Transaction

	q := r.db.Model(&transactionDatamodel.Transaction{})

	if filters.ID != nil {
		q = q.Where("id = ?", *filters.ID)
	}
	if filters.DateTimeMin != nil {
		q = q.Where("date_time >= ?", *filters.DateTimeMin)
	}
	if filters.DateTimeMax != nil {
		q = q.Where("date_time <= ?", *filters.DateTimeMax)
	}
	if filters.AmountMin != nil {
		q = q.Where("amount >= ?", *filters.AmountMin)
	}
	if filters.AmountMax != nil {
		q = q.Where("amount <= ?", *filters.AmountMax)
	}
	if filters.CreatedBy != nil {
		q = q.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != "" {
		q = q.Where("LOWER(remarks) LIKE ?", "%"+strings.ToLower(filters.Search)+"%")
	}

	err := q.Order("id ASC").Find(&records).Error
	return records, err
}

func (r *TransactionRepository) GetByID(id int64) (*transactionDatamodel.Transaction, error) {
	var record transactionDatamodel.Transaction
	err := r.db.Preload("Category").Preload("Creator").Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *TransactionRepository) Create(tx *transactionDatamodel.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *TransactionRepository) Save(tx *transactionDatamodel.Transaction) error {
	return r.db.Save(tx).Error
}

func (r *TransactionRepository) Delete(id int64) error {
	return r.db.Delete(&transactionDatamodel.Transaction{}, id).Error
}

// SumByType aggregates amounts per transaction type for one owner.
func (r *TransactionRepository) SumByType(ownerID int64) (map[string]decimal.Decimal, error) {
	type row struct {
		TransactionType string
		Total           decimal.Decimal
	}

	var rows []row
	err := r.db.Model(&transactionDatamodel.Transaction{}).
		Select("transaction_type, SUM(amount) AS total").
		Where("created_by = ?", ownerID).
		Group("transaction_type").
		Order("transaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.TransactionType] = r.Total
	}
	return totals, nil
}

// ListForExport fetches rows with relations preloaded, newest first,
// filtered by the datatable state carried over from the referring page.
func (r *TransactionRepository) ListForExport(filters transaction.ExportFilters) ([]*transactionDatamodel.Transaction, error) {
	var records []*transactionDatamodel.Transaction

	q := r.db.Model(&transactionDatamodel.Transaction{}).
		Preload("Category").
		Preload("Creator")

	if filters.OwnerID != nil {
		q = q.Where("created_by = ?", *filters.OwnerID)
	}
	if filters.Remarks != "" {
		q = q.Where("LOWER(remarks) LIKE ?", "%"+strings.ToLower(filters.Remarks)+"%")
	}
	if filters.PaymentType != "" {
		q = q.Where("payment_type = ?", filters.PaymentType)
	}
	if filters.TransactionType != "" {
		q = q.Where("transaction_type = ?", filters.TransactionType)
	}
	if len(filters.CategoryIDs) > 0 {
		q = q.Where("category_id IN ?", filters.CategoryIDs)
	}

	err := q.Order("date_time DESC").Find(&records).Error
	return records, err
}

// CategoryResolver implements transaction.CategoryResolver using GORM.
type CategoryResolver struct {
	db *gorm.DB
}

func NewCategoryResolver(db *gorm.DB) transaction.CategoryResolver {
	return &CategoryResolver{db: db}
}

func (r *CategoryResolver) Exists(id int64) (bool, error) {
	var count int64
	err := r.db.Model(&categoryDatamodel.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
