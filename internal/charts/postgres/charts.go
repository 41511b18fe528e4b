package postgres

import (
	"github.com/VivaainNg/finance-tracker/internal/charts"
	productDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/product"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
	"gorm.io/gorm"
)

// ChartsRepository reads the full product and transaction tables for
// the charts endpoint.
type ChartsRepository struct {
	db *gorm.DB
}

func NewChartsRepository(db *gorm.DB) charts.RepositoryAPI {
	return &ChartsRepository{db: db}
}

func (r *ChartsRepository) AllProducts() ([]*productDatamodel.Product, error) {
	var products []*productDatamodel.Product
	err := r.db.Order("id ASC").Find(&products).Error
	return products, err
}

func (r *ChartsRepository) AllTransactions() ([]*transactionDatamodel.Transaction, error) {
	var transactions []*transactionDatamodel.Transaction
	err := r.db.Order("id ASC").Find(&transactions).Error
	return transactions, err
}
