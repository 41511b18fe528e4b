package charts

import (
	"log/slog"

	productDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/product"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
)

type RepositoryAPI interface {
	AllProducts() ([]*productDatamodel.Product, error)
	AllTransactions() ([]*transactionDatamodel.Transaction, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ChartData serializes every product and transaction row for the
// dashboard charts.
func (s *Service) ChartData() (*ChartData, error) {
	products, err := s.repo.AllProducts()
	if err != nil {
		s.logger.Error("failed to load products for charts", "error", err)
		return nil, err
	}

	transactions, err := s.repo.AllTransactions()
	if err != nil {
		s.logger.Error("failed to load transactions for charts", "error", err)
		return nil, err
	}

	data := &ChartData{
		Products:     make([]ProductPoint, len(products)),
		Transactions: make([]TransactionPoint, len(transactions)),
	}
	for i, p := range products {
		data.Products[i] = ProductPoint{
			ID:    p.ID,
			Name:  p.Name,
			Info:  p.Info,
			Price: p.Price,
		}
	}
	for i, t := range transactions {
		data.Transactions[i] = TransactionPoint{
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
	return data, nil
}
