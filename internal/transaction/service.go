package transaction

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VivaainNg/finance-tracker/internal"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
)

// Repository defines the data access methods for transactions
type Repository interface {
	List(filters ListFilters) ([]*transactionDatamodel.Transaction, error)
	GetByID(id int64) (*transactionDatamodel.Transaction, error)
	Create(tx *transactionDatamodel.Transaction) error
	Save(tx *transactionDatamodel.Transaction) error
	Delete(id int64) error
	SumByType(ownerID int64) (map[string]decimal.Decimal, error)
	ListForExport(filters ExportFilters) ([]*transactionDatamodel.Transaction, error)
}

// CategoryResolver looks up a category by primary key; a nil result
// means no match.
type CategoryResolver interface {
	Exists(id int64) (bool, error)
}

type Service struct {
	repo       Repository
	categories CategoryResolver
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, categories CategoryResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) List(filters ListFilters) ([]*Transaction, error) {
	records, err := s.repo.List(filters)
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err)
		return nil, err
	}
	return FromDataModelSlice(records), nil
}

func (s *Service) Get(id int64) (*Transaction, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrTransactionNotFound
	}
	return FromDataModel(record), nil
}

// Create inserts a new transaction. Absent amount defaults to zero,
// absent dateTime to now; an unknown category id resolves to a null
// relation rather than an error, matching the permissive legacy write
// path.
func (s *Service) Create(dto CreateTransactionDTO, ownerID int64) (*Transaction, error) {
	// An authenticated caller always owns what it creates, regardless of
	// what the payload claimed.
	if ownerID != 0 {
		dto.CreatedBy = ownerID
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	amount := decimal.Zero
	if dto.Amount != nil {
		amount, _ = decimal.NewFromString(*dto.Amount)
	}

	dateTime := s.now()
	if dto.DateTime != nil {
		dateTime = *dto.DateTime
	}

	paymentType := dto.PaymentType
	if paymentType == "" {
		paymentType = PaymentTypeAccount
	}
	transactionType := dto.TransactionType
	if transactionType == "" {
		transactionType = TransactionTypeIncome
	}

	createdBy := dto.CreatedBy

	record := &transactionDatamodel.Transaction{
		CategoryID:      s.resolveCategory(dto.Category),
		Amount:          amount,
		DateTime:        dateTime,
		PaymentType:     paymentType,
		TransactionType: transactionType,
		Remarks:         dto.Remarks,
		CreatedBy:       createdBy,
	}

	if err := s.repo.Create(record); err != nil {
		s.logger.Error("failed to create transaction", "error", err, "created_by", createdBy)
		return nil, err
	}

	s.logger.Info("transaction created",
		"transaction_id", record.ID,
		"created_by", createdBy,
		"amount", amount.StringFixed(2),
		"transaction_type", transactionType)

	return FromDataModel(record), nil
}

// Update fully replaces the transaction's attributes (PUT semantics).
func (s *Service) Update(id int64, dto UpdateTransactionDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrTransactionNotFound
	}

	amount, _ := decimal.NewFromString(dto.Amount)

	record.CategoryID = s.resolveCategory(dto.Category)
	record.Amount = amount
	record.DateTime = dto.DateTime
	record.PaymentType = dto.PaymentType
	record.TransactionType = dto.TransactionType
	record.Remarks = dto.Remarks
	record.CreatedBy = dto.CreatedBy
	record.Category = nil
	record.Creator = nil

	if err := s.repo.Save(record); err != nil {
		s.logger.Error("failed to update transaction", "error", err, "transaction_id", id)
		return nil, err
	}

	return s.Get(id)
}

// Patch applies only the submitted attributes (PATCH semantics).
func (s *Service) Patch(id int64, dto PatchTransactionDTO) (*Transaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrTransactionNotFound
	}

	if dto.Category != nil {
		record.CategoryID = s.resolveCategory(dto.Category)
	}
	if dto.Amount != nil {
		amount, _ := decimal.NewFromString(*dto.Amount)
		record.Amount = amount
	}
	if dto.DateTime != nil {
		record.DateTime = *dto.DateTime
	}
	if dto.PaymentType != nil {
		record.PaymentType = *dto.PaymentType
	}
	if dto.TransactionType != nil {
		record.TransactionType = *dto.TransactionType
	}
	if dto.Remarks != nil {
		record.Remarks = *dto.Remarks
	}
	if dto.CreatedBy != nil {
		record.CreatedBy = *dto.CreatedBy
	}
	record.Category = nil
	record.Creator = nil

	if err := s.repo.Save(record); err != nil {
		s.logger.Error("failed to patch transaction", "error", err, "transaction_id", id)
		return nil, err
	}

	return s.Get(id)
}

func (s *Service) Delete(id int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return internal.ErrTransactionNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete transaction", "error", err, "transaction_id", id)
		return err
	}

	s.logger.Info("transaction deleted", "transaction_id", id)
	return nil
}

// Summary aggregates the owner's income and expenses. Miscellaneous
// rows are excluded from both totals, as on the dashboard.
func (s *Service) Summary(ownerID int64) (DashboardSummary, error) {
	totals, err := s.repo.SumByType(ownerID)
	if err != nil {
		s.logger.Error("failed to aggregate transactions", "error", err, "owner_id", ownerID)
		return DashboardSummary{}, err
	}

	totalIncome := totals[TransactionTypeIncome]
	totalExpenses := totals[TransactionTypeExpenses]

	return DashboardSummary{
		TotalIncome:      totalIncome.StringFixed(2),
		TotalExpenses:    totalExpenses.StringFixed(2),
		RemainingBalance: totalIncome.Sub(totalExpenses).StringFixed(2),
	}, nil
}

// Export returns rows for the CSV/XLSX download, newest first.
func (s *Service) Export(filters ExportFilters) ([]*Transaction, error) {
	records, err := s.repo.ListForExport(filters)
	if err != nil {
		s.logger.Error("failed to list transactions for export", "error", err)
		return nil, err
	}
	return FromDataModelSlice(records), nil
}

// resolveCategory keeps the legacy permissive behavior: an id that does
// not match an existing category yields a null relation instead of a
// validation error.
func (s *Service) resolveCategory(id *int64) *int64 {
	if id == nil {
		return nil
	}
	exists, err := s.categories.Exists(*id)
	if err != nil || !exists {
		return nil
	}
	return id
}
