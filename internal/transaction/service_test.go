package transaction

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/VivaainNg/finance-tracker/internal"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
)

func TestTransaction(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Transaction Module Suite")
}

type mockRepository struct {
	records map[int64]*transactionDatamodel.Transaction
	nextID  int64
	sums    map[string]decimal.Decimal

	returnError   bool
	errorToReturn error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		records: make(map[int64]*transactionDatamodel.Transaction),
		nextID:  1,
		sums:    make(map[string]decimal.Decimal),
	}
}

func (m *mockRepository) List(filters ListFilters) ([]*transactionDatamodel.Transaction, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	var out []*transactionDatamodel.Transaction
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockRepository) GetByID(id int64) (*transactionDatamodel.Transaction, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *rec
	return &copied, nil
}

func (m *mockRepository) Create(tx *transactionDatamodel.Transaction) error {
	if m.returnError {
		return m.errorToReturn
	}
	tx.ID = m.nextID
	m.nextID++
	copied := *tx
	m.records[tx.ID] = &copied
	return nil
}

func (m *mockRepository) Save(tx *transactionDatamodel.Transaction) error {
	if m.returnError {
		return m.errorToReturn
	}
	copied := *tx
	m.records[tx.ID] = &copied
	return nil
}

func (m *mockRepository) Delete(id int64) error {
	if m.returnError {
		return m.errorToReturn
	}
	delete(m.records, id)
	return nil
}

func (m *mockRepository) SumByType(ownerID int64) (map[string]decimal.Decimal, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	return m.sums, nil
}

func (m *mockRepository) ListForExport(filters ExportFilters) ([]*transactionDatamodel.Transaction, error) {
	return m.List(ListFilters{})
}

type mockCategoryResolver struct {
	existing map[int64]bool
}

func (m *mockCategoryResolver) Exists(id int64) (bool, error) {
	return m.existing[id], nil
}

var _ = ginkgo.Describe("TransactionService", func() {
	var (
		service  *Service
		repo     *mockRepository
		resolver *mockCategoryResolver
		fixedNow time.Time
	)

	ginkgo.BeforeEach(func() {
		repo = newMockRepository()
		resolver = &mockCategoryResolver{existing: map[int64]bool{1: true, 2: true}}
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(repo, resolver, slogger)

		fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		service.now = func() time.Time { return fixedNow }
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should apply defaults for an empty payload", func() {
			tx, err := service.Create(CreateTransactionDTO{CreatedBy: 7}, 0)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tx.Amount.StringFixed(2)).To(gomega.Equal("0.00"))
			gomega.Expect(tx.DateTime).To(gomega.Equal(fixedNow))
			gomega.Expect(tx.PaymentType).To(gomega.Equal(PaymentTypeAccount))
			gomega.Expect(tx.TransactionType).To(gomega.Equal(TransactionTypeIncome))
			gomega.Expect(tx.CreatedBy).To(gomega.Equal(int64(7)))
		})

		ginkgo.It("should round-trip the amount with two decimal places", func() {
			amount := "123.456"
			tx, err := service.Create(CreateTransactionDTO{Amount: &amount, CreatedBy: 1}, 0)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ToResponse(tx).Amount).To(gomega.Equal("123.46"))
		})

		ginkgo.It("should null the category when the id does not exist", func() {
			missing := int64(9999)
			tx, err := service.Create(CreateTransactionDTO{Category: &missing, CreatedBy: 1}, 0)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tx.CategoryID).To(gomega.BeNil())
		})

		ginkgo.It("should keep a category that exists", func() {
			existing := int64(2)
			tx, err := service.Create(CreateTransactionDTO{Category: &existing, CreatedBy: 1}, 0)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tx.CategoryID).ToNot(gomega.BeNil())
			gomega.Expect(*tx.CategoryID).To(gomega.Equal(int64(2)))
		})

		ginkgo.It("should force ownership when a requester is present", func() {
			tx, err := service.Create(CreateTransactionDTO{CreatedBy: 42}, 5)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tx.CreatedBy).To(gomega.Equal(int64(5)))
		})

		ginkgo.It("should reject an invalid payment type", func() {
			_, err := service.Create(CreateTransactionDTO{PaymentType: "Cheque", CreatedBy: 1}, 0)

			gomega.Expect(err).To(gomega.HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeValidationFailed))
		})
	})

	ginkgo.Describe("Patch", func() {
		var existingID int64

		ginkgo.BeforeEach(func() {
			amount := "50.00"
			tx, err := service.Create(CreateTransactionDTO{Amount: &amount, Remarks: "groceries", CreatedBy: 1}, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			existingID = tx.ID
		})

		ginkgo.It("should only touch submitted fields", func() {
			remarks := "weekly groceries"
			tx, err := service.Patch(existingID, PatchTransactionDTO{Remarks: &remarks})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tx.Remarks).To(gomega.Equal("weekly groceries"))
			gomega.Expect(tx.Amount.StringFixed(2)).To(gomega.Equal("50.00"))
		})

		ginkgo.It("should return not found for an unknown id", func() {
			remarks := "nope"
			_, err := service.Patch(99999, PatchTransactionDTO{Remarks: &remarks})

			gomega.Expect(err).To(gomega.Equal(internal.ErrTransactionNotFound))
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("should delete an existing transaction and then miss it", func() {
			tx, err := service.Create(CreateTransactionDTO{CreatedBy: 1}, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Delete(tx.ID)).To(gomega.Succeed())

			_, err = service.Get(tx.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrTransactionNotFound))
		})

		ginkgo.It("should return not found when the id never existed", func() {
			gomega.Expect(service.Delete(12345)).To(gomega.Equal(internal.ErrTransactionNotFound))
		})
	})

	ginkgo.Describe("Summary", func() {
		ginkgo.It("should format the totals with two decimals", func() {
			repo.sums[TransactionTypeIncome] = decimal.RequireFromString("2500")
			repo.sums[TransactionTypeExpenses] = decimal.RequireFromString("1320.455")

			summary, err := service.Summary(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(summary.TotalIncome).To(gomega.Equal("2500.00"))
			gomega.Expect(summary.TotalExpenses).To(gomega.Equal("1320.46"))
			gomega.Expect(summary.RemainingBalance).To(gomega.Equal("1179.55"))
		})

		ginkgo.It("should report zeros when the owner has no rows", func() {
			summary, err := service.Summary(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(summary.TotalIncome).To(gomega.Equal("0.00"))
			gomega.Expect(summary.TotalExpenses).To(gomega.Equal("0.00"))
			gomega.Expect(summary.RemainingBalance).To(gomega.Equal("0.00"))
		})

		ginkgo.It("should ignore miscellaneous rows", func() {
			repo.sums[TransactionTypeIncome] = decimal.RequireFromString("100")
			repo.sums[TransactionTypeMiscellaneous] = decimal.RequireFromString("999")

			summary, err := service.Summary(1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(summary.RemainingBalance).To(gomega.Equal("100.00"))
		})
	})
})
