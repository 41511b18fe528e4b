package transaction_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
	"github.com/VivaainNg/finance-tracker/internal/transaction"
	transactionPostgres "github.com/VivaainNg/finance-tracker/internal/transaction/postgres"
)

var _ = Describe("Transaction Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *transaction.Handler
		router  *chi.Mux
		userID  int64
		catID   int64
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&userDatamodel.User{},
			&categoryDatamodel.Category{},
			&transactionDatamodel.Transaction{},
		)
		Expect(err).NotTo(HaveOccurred())

		user := &userDatamodel.User{Username: "alice", PasswordHash: "x", IsActive: true}
		Expect(db.Create(user).Error).NotTo(HaveOccurred())
		userID = user.ID

		cat := &categoryDatamodel.Category{Name: "Food"}
		Expect(db.Create(cat).Error).NotTo(HaveOccurred())
		catID = cat.ID

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo := transactionPostgres.NewTransactionRepository(db)
		resolver := transactionPostgres.NewCategoryResolver(db)
		service := transaction.NewService(repo, resolver, slogger)
		handler = transaction.NewHandler(service)

		router = chi.NewRouter()
		router.Route("/api/transactions", func(r chi.Router) {
			r.Get("/", handler.ListTransactions)
			r.Post("/", handler.CreateTransaction)
			r.Get("/{id}", handler.GetTransaction)
			r.Put("/{id}", handler.UpdateTransaction)
			r.Patch("/{id}", handler.PatchTransaction)
			r.Delete("/{id}", handler.DeleteTransaction)
		})
	})

	createTransaction := func(body map[string]interface{}) map[string]interface{} {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/api/transactions/", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var created map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		return created
	}

	It("should create a transaction and answer with camelCase keys", func() {
		created := createTransaction(map[string]interface{}{
			"category":        catID,
			"amount":          "45.9",
			"dateTime":        "2024-03-01T12:30:00Z",
			"paymentType":     "Card",
			"transactionType": "Expenses",
			"remarks":         "lunch",
			"createdBy":       userID,
		})

		Expect(created).To(HaveKey("paymentType"))
		Expect(created).To(HaveKey("transactionType"))
		Expect(created).To(HaveKey("dateTime"))
		Expect(created).To(HaveKey("createdBy"))
		Expect(created["amount"]).To(Equal("45.90"))
		Expect(created["paymentType"]).To(Equal("Card"))
	})

	It("should default payment and transaction types on a minimal payload", func() {
		created := createTransaction(map[string]interface{}{
			"createdBy": userID,
		})

		Expect(created["paymentType"]).To(Equal("Account"))
		Expect(created["transactionType"]).To(Equal("Income"))
		Expect(created["amount"]).To(Equal("0.00"))
		Expect(created["category"]).To(BeNil())
	})

	It("should null the category when it references a missing row", func() {
		created := createTransaction(map[string]interface{}{
			"category":  99999,
			"createdBy": userID,
		})

		Expect(created["category"]).To(BeNil())
	})

	It("should reject an invalid transaction type", func() {
		payload, _ := json.Marshal(map[string]interface{}{
			"transactionType": "Donation",
			"createdBy":       userID,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject a payload without createdBy", func() {
		payload, _ := json.Marshal(map[string]interface{}{
			"amount":  "5.00",
			"remarks": "no owner",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	Describe("listing with filters", func() {
		BeforeEach(func() {
			rows := []map[string]interface{}{
				{"amount": "10.00", "dateTime": "2024-01-01T00:00:00Z", "remarks": "coffee", "transactionType": "Expenses", "createdBy": userID},
				{"amount": "20.00", "dateTime": "2024-02-01T00:00:00Z", "remarks": "books", "transactionType": "Expenses", "createdBy": userID},
				{"amount": "30.00", "dateTime": "2024-03-01T00:00:00Z", "remarks": "salary", "transactionType": "Income", "createdBy": userID},
			}
			for _, row := range rows {
				createTransaction(row)
			}
		})

		list := func(query string) []map[string]interface{} {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions/"+query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var out []map[string]interface{}
			Expect(json.NewDecoder(w.Body).Decode(&out)).To(Succeed())
			return out
		}

		It("should apply inclusive amount bounds", func() {
			out := list("?amountMin=10.00&amountMax=20.00")
			Expect(out).To(HaveLen(2))
		})

		It("should apply inclusive date bounds", func() {
			out := list("?dateTimeMin=2024-02-01T00:00:00Z&dateTimeMax=2024-03-01T00:00:00Z")
			Expect(out).To(HaveLen(2))
		})

		It("should search remarks case-insensitively", func() {
			out := list("?search=SAL")
			Expect(out).To(HaveLen(1))
			Expect(out[0]["remarks"]).To(Equal("salary"))
		})
	})

	Describe("item routes", func() {
		var txID float64

		BeforeEach(func() {
			created := createTransaction(map[string]interface{}{
				"amount":    "100.00",
				"remarks":   "initial",
				"createdBy": userID,
			})
			txID = created["id"].(float64)
		})

		It("should patch only the submitted fields", func() {
			payload, _ := json.Marshal(map[string]interface{}{"remarks": "patched"})
			req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/transactions/%d", int64(txID)), bytes.NewReader(payload))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var out map[string]interface{}
			Expect(json.NewDecoder(w.Body).Decode(&out)).To(Succeed())
			Expect(out["remarks"]).To(Equal("patched"))
			Expect(out["amount"]).To(Equal("100.00"))
		})

		It("should replace the record on PUT", func() {
			payload, _ := json.Marshal(map[string]interface{}{
				"amount":          "55.55",
				"dateTime":        "2024-04-01T00:00:00Z",
				"paymentType":     "Cash",
				"transactionType": "Expenses",
				"remarks":         "replaced",
				"createdBy":       userID,
			})
			req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/transactions/%d", int64(txID)), bytes.NewReader(payload))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var out map[string]interface{}
			Expect(json.NewDecoder(w.Body).Decode(&out)).To(Succeed())
			Expect(out["amount"]).To(Equal("55.55"))
			Expect(out["paymentType"]).To(Equal("Cash"))
		})

		It("should delete with no content and then 404", func() {
			req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", int64(txID)), nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNoContent))

			req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/transactions/%d", int64(txID)), nil)
			w = httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should 404 on an unknown id", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions/99999", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
