package datatable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VivaainNg/finance-tracker/internal"
	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
	productDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/product"
	transactionDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/transaction"
	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
)

// Kind classifies a datatable column for filtering and rendering.
type Kind string

const (
	KindInteger  Kind = "integer"
	KindDecimal  Kind = "decimal"
	KindDateTime Kind = "datetime"
	KindEmail    Kind = "email"
	KindText     Kind = "text"
	KindChoice   Kind = "choice"
	KindFK       Kind = "fk"
)

// FieldDescriptor describes one column of a registered model. Get and
// Set close over the concrete datamodel struct so the engine never
// touches reflection.
type FieldDescriptor struct {
	Name     string // form/query field name
	Column   string // database column, defaults to Name
	Kind     Kind
	Choices  []string // valid values for KindChoice
	FKTarget string   // registry path of the referenced model, for KindFK
	ReadOnly bool

	// Get renders the field for display/export; ok=false means the
	// attribute is unreadable on this record and exports as an empty cell.
	Get func(rec interface{}) (string, bool)
	// Set parses a submitted value onto the record. An empty string on a
	// nullable field clears it.
	Set func(rec interface{}, raw string) error
	// IsUnset reports whether the field currently holds no value. Update
	// skips fields that are unset, keeping the legacy screen behavior.
	IsUnset func(rec interface{}) bool
}

// ModelDescriptor is the compile-time registration of one model path.
type ModelDescriptor struct {
	Path        string
	DisplayName string
	Table       string
	Fields      []FieldDescriptor

	NewRecord  func() interface{}
	NewSlice   func() interface{}
	ForEach    func(slice interface{}, fn func(rec interface{}))
	PrimaryKey func(rec interface{}) int64

	// CreatedByColumn is empty for models without ownership.
	CreatedByColumn string
	SetOwner        func(rec interface{}, userID int64)

	// ApplyDefaults fills the gaps a create form may leave behind.
	ApplyDefaults func(rec interface{}, now time.Time)

	// TimestampField, when set, forces a descending sort on listings.
	TimestampField string

	// ReadOnly models serve lookups and FK candidate rows only; the
	// engine rejects create/update/delete against them.
	ReadOnly bool

	Preloads []string
}

func (d *ModelDescriptor) HasCreatedBy() bool {
	return d.CreatedByColumn != ""
}

func (d *ModelDescriptor) Field(name string) (*FieldDescriptor, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

func (d *ModelDescriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// ForeignKeys maps FK field names to their target model paths.
func (d *ModelDescriptor) ForeignKeys() map[string]string {
	fks := make(map[string]string)
	for _, f := range d.Fields {
		if f.Kind == KindFK && f.FKTarget != "" {
			fks[f.Name] = f.FKTarget
		}
	}
	return fks
}

// ChoiceFields maps choice field names to their allowed values.
func (d *ModelDescriptor) ChoiceFields() map[string][]string {
	choices := make(map[string][]string)
	for _, f := range d.Fields {
		if f.Kind == KindChoice {
			choices[f.Name] = f.Choices
		}
	}
	return choices
}

func (d *ModelDescriptor) FieldNamesOfKind(kind Kind) []string {
	var names []string
	for _, f := range d.Fields {
		if f.Kind == kind {
			names = append(names, f.Name)
		}
	}
	return names
}

// Registry maps URL path segments to model descriptors. Registration
// happens once at startup; lookups are read-only afterwards.
type Registry struct {
	models map[string]*ModelDescriptor
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*ModelDescriptor)}
}

func (r *Registry) Register(d *ModelDescriptor) {
	r.models[strings.ToLower(d.Path)] = d
}

func (r *Registry) Resolve(path string) (*ModelDescriptor, error) {
	d, ok := r.models[strings.ToLower(path)]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", path, internal.ErrUnknownModel)
	}
	return d, nil
}

func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.models))
	for p := range r.models {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DefaultRegistry registers the models exposed on the datatable routes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(transactionDescriptor())
	r.Register(categoryDescriptor())
	r.Register(productDescriptor())
	r.Register(userDescriptor())
	return r
}

var recordTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseRecordTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range recordTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func transactionDescriptor() *ModelDescriptor {
	rec := func(v interface{}) *transactionDatamodel.Transaction {
		return v.(*transactionDatamodel.Transaction)
	}

	return &ModelDescriptor{
		Path:        "transaction",
		DisplayName: "Transaction",
		Table:       transactionDatamodel.Transaction{}.TableName(),
		NewRecord:   func() interface{} { return &transactionDatamodel.Transaction{} },
		NewSlice:    func() interface{} { return &[]*transactionDatamodel.Transaction{} },
		ForEach: func(slice interface{}, fn func(rec interface{})) {
			for _, t := range *slice.(*[]*transactionDatamodel.Transaction) {
				fn(t)
			}
		},
		PrimaryKey:      func(v interface{}) int64 { return rec(v).ID },
		CreatedByColumn: "created_by",
		SetOwner:        func(v interface{}, userID int64) { rec(v).CreatedBy = userID },
		ApplyDefaults: func(v interface{}, now time.Time) {
			t := rec(v)
			if t.DateTime.IsZero() {
				t.DateTime = now
			}
			if t.PaymentType == "" {
				t.PaymentType = "Account"
			}
			if t.TransactionType == "" {
				t.TransactionType = "Income"
			}
		},
		TimestampField: "date_time",
		Preloads:       []string{"Category", "Creator"},
		Fields: []FieldDescriptor{
			{
				Name: "date_time", Kind: KindDateTime,
				Get: func(v interface{}) (string, bool) {
					return rec(v).DateTime.Format("2006-01-02 15:04:05"), true
				},
				Set: func(v interface{}, raw string) error {
					if raw == "" {
						return nil
					}
					t, err := parseRecordTime(raw)
					if err != nil {
						return err
					}
					rec(v).DateTime = t
					return nil
				},
			},
			{
				Name: "transaction_type", Kind: KindChoice,
				Choices: []string{"Income", "Expenses", "Miscellaneous"},
				Get: func(v interface{}) (string, bool) {
					return rec(v).TransactionType, true
				},
				Set: func(v interface{}, raw string) error {
					if raw != "" {
						rec(v).TransactionType = raw
					}
					return nil
				},
			},
			{
				Name: "amount", Kind: KindDecimal,
				Get: func(v interface{}) (string, bool) {
					return rec(v).Amount.StringFixed(2), true
				},
				Set: func(v interface{}, raw string) error {
					if raw == "" {
						return nil
					}
					d, err := decimal.NewFromString(raw)
					if err != nil {
						return err
					}
					rec(v).Amount = d
					return nil
				},
			},
			{
				Name: "category", Column: "category_id", Kind: KindFK, FKTarget: "category",
				Get: func(v interface{}) (string, bool) {
					t := rec(v)
					if t.Category != nil {
						return t.Category.Name, true
					}
					if t.CategoryID == nil {
						return "", true
					}
					return "", false
				},
				Set: func(v interface{}, raw string) error {
					if raw == "" {
						rec(v).CategoryID = nil
						return nil
					}
					id, err := strconv.ParseInt(raw, 10, 64)
					if err != nil {
						return err
					}
					rec(v).CategoryID = &id
					return nil
				},
				IsUnset: func(v interface{}) bool { return rec(v).CategoryID == nil },
			},
			{
				Name: "payment_type", Kind: KindChoice,
				Choices: []string{"Cash", "Card", "Account"},
				Get: func(v interface{}) (string, bool) {
					return rec(v).PaymentType, true
				},
				Set: func(v interface{}, raw string) error {
					if raw != "" {
						rec(v).PaymentType = raw
					}
					return nil
				},
			},
			{
				Name: "remarks", Kind: KindText,
				Get: func(v interface{}) (string, bool) {
					return rec(v).Remarks, true
				},
				Set: func(v interface{}, raw string) error {
					rec(v).Remarks = raw
					return nil
				},
			},
			{
				Name: "created_by", Kind: KindFK, FKTarget: "user", ReadOnly: true,
				Get: func(v interface{}) (string, bool) {
					t := rec(v)
					if t.Creator != nil {
						return t.Creator.Username, true
					}
					return strconv.FormatInt(t.CreatedBy, 10), true
				},
			},
		},
	}
}

func categoryDescriptor() *ModelDescriptor {
	rec := func(v interface{}) *categoryDatamodel.Category {
		return v.(*categoryDatamodel.Category)
	}

	return &ModelDescriptor{
		Path:        "category",
		DisplayName: "Category",
		Table:       categoryDatamodel.Category{}.TableName(),
		NewRecord:   func() interface{} { return &categoryDatamodel.Category{} },
		NewSlice:    func() interface{} { return &[]*categoryDatamodel.Category{} },
		ForEach: func(slice interface{}, fn func(rec interface{})) {
			for _, c := range *slice.(*[]*categoryDatamodel.Category) {
				fn(c)
			}
		},
		PrimaryKey: func(v interface{}) int64 { return rec(v).ID },
		Fields: []FieldDescriptor{
			{
				Name: "id", Kind: KindInteger, ReadOnly: true,
				Get: func(v interface{}) (string, bool) {
					return strconv.FormatInt(rec(v).ID, 10), true
				},
			},
			{
				Name: "name", Kind: KindText,
				Get: func(v interface{}) (string, bool) {
					return rec(v).Name, true
				},
				Set: func(v interface{}, raw string) error {
					rec(v).Name = raw
					return nil
				},
			},
		},
	}
}

func productDescriptor() *ModelDescriptor {
	rec := func(v interface{}) *productDatamodel.Product {
		return v.(*productDatamodel.Product)
	}

	return &ModelDescriptor{
		Path:        "product",
		DisplayName: "Product",
		Table:       productDatamodel.Product{}.TableName(),
		NewRecord:   func() interface{} { return &productDatamodel.Product{} },
		NewSlice:    func() interface{} { return &[]*productDatamodel.Product{} },
		ForEach: func(slice interface{}, fn func(rec interface{})) {
			for _, p := range *slice.(*[]*productDatamodel.Product) {
				fn(p)
			}
		},
		PrimaryKey: func(v interface{}) int64 { return rec(v).ID },
		Fields: []FieldDescriptor{
			{
				Name: "id", Kind: KindInteger, ReadOnly: true,
				Get: func(v interface{}) (string, bool) {
					return strconv.FormatInt(rec(v).ID, 10), true
				},
			},
			{
				Name: "name", Kind: KindText,
				Get: func(v interface{}) (string, bool) {
					return rec(v).Name, true
				},
				Set: func(v interface{}, raw string) error {
					rec(v).Name = raw
					return nil
				},
			},
			{
				Name: "info", Kind: KindText,
				Get: func(v interface{}) (string, bool) {
					return rec(v).Info, true
				},
				Set: func(v interface{}, raw string) error {
					rec(v).Info = raw
					return nil
				},
			},
			{
				Name: "price", Kind: KindInteger,
				Get: func(v interface{}) (string, bool) {
					p := rec(v)
					if p.Price == nil {
						return "", true
					}
					return strconv.FormatInt(*p.Price, 10), true
				},
				Set: func(v interface{}, raw string) error {
					if raw == "" {
						rec(v).Price = nil
						return nil
					}
					n, err := strconv.ParseInt(raw, 10, 64)
					if err != nil {
						return err
					}
					rec(v).Price = &n
					return nil
				},
				IsUnset: func(v interface{}) bool { return rec(v).Price == nil },
			},
		},
	}
}

// userDescriptor serves the created_by foreign key candidates; the
// model is lookup-only and never mutated through the engine.
func userDescriptor() *ModelDescriptor {
	rec := func(v interface{}) *userDatamodel.User {
		return v.(*userDatamodel.User)
	}

	return &ModelDescriptor{
		Path:        "user",
		DisplayName: "User",
		Table:       userDatamodel.User{}.TableName(),
		ReadOnly:    true,
		NewRecord:   func() interface{} { return &userDatamodel.User{} },
		NewSlice:    func() interface{} { return &[]*userDatamodel.User{} },
		ForEach: func(slice interface{}, fn func(rec interface{})) {
			for _, u := range *slice.(*[]*userDatamodel.User) {
				fn(u)
			}
		},
		PrimaryKey: func(v interface{}) int64 { return rec(v).ID },
		Fields: []FieldDescriptor{
			{
				Name: "id", Kind: KindInteger, ReadOnly: true,
				Get: func(v interface{}) (string, bool) {
					return strconv.FormatInt(rec(v).ID, 10), true
				},
			},
			{
				Name: "username", Kind: KindText, ReadOnly: true,
				Get: func(v interface{}) (string, bool) {
					return rec(v).Username, true
				},
			},
		},
	}
}
