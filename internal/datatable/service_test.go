package datatable_test

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/VivaainNg/finance-tracker/internal"
	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
	productDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/product"
	datatableDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/datatable"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
	"github.com/VivaainNg/finance-tracker/internal/datatable"
	datatablePostgres "github.com/VivaainNg/finance-tracker/internal/datatable/postgres"
)

var _ = Describe("Datatable Engine", func() {
	var (
		db      *gorm.DB
		service *datatable.Service
		prefs   *datatable.Preferences
		alice   int64
		bob     int64
		foodID  int64
	)

	owner := func(id int64) datatable.Requester {
		return datatable.Requester{UserID: id}
	}
	anonymous := datatable.Requester{Anonymous: true}

	addTransaction := func(ownerID int64, amount string, dateTime time.Time, remarks string, categoryID *int64) *transactionDatamodel.Transaction {
		rec := &transactionDatamodel.Transaction{
			CategoryID:      categoryID,
			Amount:          decimal.RequireFromString(amount),
			DateTime:        dateTime,
			PaymentType:     "Account",
			TransactionType: "Expenses",
			Remarks:         remarks,
			CreatedBy:       ownerID,
		}
		Expect(db.Create(rec).Error).NotTo(HaveOccurred())
		return rec
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(
			&userDatamodel.User{},
			&categoryDatamodel.Category{},
			&productDatamodel.Product{},
			&transactionDatamodel.Transaction{},
			&datatableDatamodel.ModelFilter{},
			&datatableDatamodel.PageItems{},
			&datatableDatamodel.HideShowFilter{},
		)
		Expect(err).NotTo(HaveOccurred())

		for _, u := range []*userDatamodel.User{
			{Username: "alice", PasswordHash: "x", IsActive: true},
			{Username: "bob", PasswordHash: "x", IsActive: true},
		} {
			Expect(db.Create(u).Error).NotTo(HaveOccurred())
		}
		var users []userDatamodel.User
		Expect(db.Order("id ASC").Find(&users).Error).NotTo(HaveOccurred())
		alice, bob = users[0].ID, users[1].ID

		food := &categoryDatamodel.Category{Name: "Food"}
		Expect(db.Create(food).Error).NotTo(HaveOccurred())
		foodID = food.ID

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store := datatablePostgres.NewStore(db)
		prefs = datatable.NewPreferences(datatablePostgres.NewPreferencesRepository(db))
		service = datatable.NewService(datatable.DefaultRegistry(), store, prefs, slogger)
	})

	Describe("List", func() {
		BeforeEach(func() {
			addTransaction(alice, "10.00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "alice coffee", &foodID)
			addTransaction(alice, "20.00", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "alice books", nil)
			addTransaction(bob, "30.00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "bob rent", nil)
		})

		It("restricts owned models to the requester's rows", func() {
			page, err := service.List("transaction", owner(alice), 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(2))
		})

		It("shows anonymous requesters everything on ownership-less models", func() {
			page, err := service.List("category", anonymous, 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(1))
			Expect(page.Rows[0].Cells["name"]).To(Equal("Food"))
		})

		It("forces the newest-first timestamp sort", func() {
			page, err := service.List("transaction", owner(alice), 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows[0].Cells["remarks"]).To(Equal("alice books"))
		})

		It("applies saved filters and drops stale keys", func() {
			Expect(prefs.UpsertFilter("transaction", "remarks", "books")).To(Succeed())
			Expect(prefs.UpsertFilter("transaction", "no_such_field", "x")).To(Succeed())

			page, err := service.List("transaction", owner(alice), 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(1))
			Expect(page.Rows[0].Cells["remarks"]).To(Equal("alice books"))
		})

		It("applies ad-hoc numeric ranges inclusively", func() {
			query := url.Values{}
			query.Set("amount_min", "10.00")
			query.Set("amount_max", "20.00")

			page, err := service.List("transaction", owner(alice), 1, url.Values(query))
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(2))
		})

		It("rejects an out-of-range page", func() {
			_, err := service.List("transaction", owner(alice), 99, url.Values{})
			Expect(errors.Is(err, internal.ErrBadPageNumber)).To(BeTrue())
		})

		It("honors the stored page size", func() {
			Expect(prefs.SetPageSize("transaction", 1)).To(Succeed())

			page, err := service.List("transaction", owner(alice), 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(1))
			Expect(page.TotalPages).To(Equal(2))
		})

		It("renders the category cell with the related name", func() {
			page, err := service.List("transaction", owner(alice), 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())

			var cells []string
			for _, row := range page.Rows {
				cells = append(cells, row.Cells["category"])
			}
			Expect(cells).To(ContainElement("Food"))
		})
	})

	Describe("Create", func() {
		It("nulls a foreign key that points nowhere", func() {
			form := url.Values{}
			form.Set("category", "99999")
			form.Set("amount", "5.00")

			id, err := service.Create("transaction", owner(alice), form)
			Expect(err).NotTo(HaveOccurred())

			var rec transactionDatamodel.Transaction
			Expect(db.First(&rec, id).Error).NotTo(HaveOccurred())
			Expect(rec.CategoryID).To(BeNil())
		})

		It("defaults amount, timestamp, and choice fields", func() {
			id, err := service.Create("transaction", owner(alice), url.Values{})
			Expect(err).NotTo(HaveOccurred())

			var rec transactionDatamodel.Transaction
			Expect(db.First(&rec, id).Error).NotTo(HaveOccurred())
			Expect(rec.Amount.StringFixed(2)).To(Equal("0.00"))
			Expect(rec.DateTime).NotTo(BeZero())
			Expect(rec.PaymentType).To(Equal("Account"))
			Expect(rec.TransactionType).To(Equal("Income"))
			Expect(rec.CreatedBy).To(Equal(alice))
		})

		It("refuses anonymous creation on owned models", func() {
			_, err := service.Create("transaction", anonymous, url.Values{})
			Expect(errors.Is(err, internal.ErrAuthRequired)).To(BeTrue())
		})

		It("lets anonymous requesters create on ownership-less models", func() {
			form := url.Values{}
			form.Set("name", "Travel")

			_, err := service.Create("category", anonymous, form)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Update", func() {
		It("applies submitted attributes and forces the owner", func() {
			rec := addTransaction(bob, "10.00", time.Now().UTC(), "before", nil)

			form := url.Values{}
			form.Set("remarks", "after")

			Expect(service.Update("transaction", owner(alice), rec.ID, form)).To(Succeed())

			var got transactionDatamodel.Transaction
			Expect(db.First(&got, rec.ID).Error).NotTo(HaveOccurred())
			Expect(got.Remarks).To(Equal("after"))
			Expect(got.CreatedBy).To(Equal(alice))
		})

		It("skips a category update while the relation is unset", func() {
			rec := addTransaction(alice, "10.00", time.Now().UTC(), "r", nil)

			form := url.Values{}
			form.Set("category", "1")

			Expect(service.Update("transaction", owner(alice), rec.ID, form)).To(Succeed())

			var got transactionDatamodel.Transaction
			Expect(db.First(&got, rec.ID).Error).NotTo(HaveOccurred())
			Expect(got.CategoryID).To(BeNil())
		})

		It("reports not found for a missing record", func() {
			err := service.Update("transaction", owner(alice), 99999, url.Values{})
			Expect(errors.Is(err, internal.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("deletes once and misses the second time", func() {
			rec := addTransaction(alice, "10.00", time.Now().UTC(), "r", nil)

			Expect(service.Delete("transaction", rec.ID)).To(Succeed())
			err := service.Delete("transaction", rec.ID)
			Expect(errors.Is(err, internal.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Describe("ExportCSV", func() {
		BeforeEach(func() {
			addTransaction(alice, "10.00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "coffee", &foodID)
		})

		It("uses the visible fields in declared order as header", func() {
			header, _, err := service.ExportCSV("transaction", owner(alice), url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(header).To(Equal([]string{
				"date_time", "transaction_type", "amount",
				"category", "payment_type", "remarks", "created_by",
			}))
		})

		It("drops hidden columns from header and rows", func() {
			d, err := service.Resolve("transaction")
			Expect(err).NotTo(HaveOccurred())
			_, err = prefs.Visibility(d.Path, d.FieldNames())
			Expect(err).NotTo(HaveOccurred())
			Expect(prefs.ToggleVisibility("transaction", "amount", true)).To(Succeed())

			header, rows, err := service.ExportCSV("transaction", owner(alice), url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(header).NotTo(ContainElement("amount"))
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveLen(len(header)))
		})

		It("honors the requested sort instead of forcing newest-first", func() {
			addTransaction(alice, "30.00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "rent", nil)
			addTransaction(alice, "20.00", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "books", nil)

			_, rows, err := service.ExportCSV("transaction", owner(alice), url.Values{"order_by": {"amount"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0][2]).To(Equal("10.00"))
			Expect(rows[2][2]).To(Equal("30.00"))

			_, rows, err = service.ExportCSV("transaction", owner(alice), url.Values{"order_by": {"-amount"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0][2]).To(Equal("30.00"))
		})

		It("restricts owned models to the requester's rows", func() {
			addTransaction(bob, "99.00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "bob rent", nil)

			_, rows, err := service.ExportCSV("transaction", owner(alice), url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0][5]).To(Equal("coffee"))
		})
	})

	Describe("read-only models", func() {
		It("rejects mutations against the user model", func() {
			_, err := service.Create("user", owner(alice), url.Values{"username": {"mallory"}})
			_, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())

			err = service.Delete("user", alice)
			_, ok = internal.IsAppError(err)
			Expect(ok).To(BeTrue())
		})

		It("still lists user rows for lookups", func() {
			page, err := service.List("user", anonymous, 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(2))
		})
	})

	Describe("ForeignKeyOptions", func() {
		It("labels candidates for every registered target", func() {
			options, err := service.ForeignKeyOptions("transaction")
			Expect(err).NotTo(HaveOccurred())

			Expect(options["category"]).To(HaveLen(1))
			Expect(options["category"][0].Label).To(Equal("Food"))

			Expect(options["created_by"]).To(HaveLen(2))
			Expect(options["created_by"][0].Label).To(Equal("alice"))
			Expect(options["created_by"][1].Label).To(Equal("bob"))
		})
	})

	Describe("product listings", func() {
		addProduct := func(name, info string, price *int64) {
			Expect(db.Create(&productDatamodel.Product{Name: name, Info: info, Price: price}).Error).NotTo(HaveOccurred())
		}

		It("honors the requested sort when the model has no timestamp", func() {
			cheap, dear := int64(5), int64(50)
			addProduct("widget", "", &dear)
			addProduct("gadget", "", &cheap)

			page, err := service.List("product", anonymous, 1, url.Values{"order_by": {"price"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows).To(HaveLen(2))
			Expect(page.Rows[0].Cells["name"]).To(Equal("gadget"))
			Expect(page.Rows[1].Cells["name"]).To(Equal("widget"))
		})

		It("renders a nil price as an empty cell", func() {
			addProduct("sample", "prototype", nil)

			page, err := service.List("product", anonymous, 1, url.Values{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Rows[0].Cells["price"]).To(BeEmpty())
		})
	})

	Describe("Preferences", func() {
		It("eagerly creates visibility rows on first read", func() {
			d, err := service.Resolve("transaction")
			Expect(err).NotTo(HaveOccurred())

			rows, err := prefs.Visibility(d.Path, d.FieldNames())
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(len(d.FieldNames())))

			var count int64
			Expect(db.Model(&datatableDatamodel.HideShowFilter{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(len(d.FieldNames()))))
		})

		It("keeps a single page-size row per model path", func() {
			Expect(prefs.SetPageSize("transaction", 10)).To(Succeed())
			Expect(prefs.SetPageSize("transaction", 50)).To(Succeed())

			size, err := prefs.PageSize("transaction")
			Expect(err).NotTo(HaveOccurred())
			Expect(size).To(Equal(50))

			var count int64
			Expect(db.Model(&datatableDatamodel.PageItems{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("falls back to the default page size", func() {
			size, err := prefs.PageSize("category")
			Expect(err).NotTo(HaveOccurred())
			Expect(size).To(Equal(datatable.DefaultPageSize))
		})
	})
})
