package datatable

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VivaainNg/finance-tracker/internal"
)

// Requester identifies who is driving the datatable. Anonymous requests
// pass through; the ownership restriction only applies to models that
// carry a created_by column.
type Requester struct {
	UserID    int64
	Anonymous bool
}

// ColumnFilter is one case-insensitive contains match on a column.
type ColumnFilter struct {
	Column string
	Value  string
}

// RangeFilter bounds a numeric column inclusively. Nil means unbounded.
type RangeFilter struct {
	Column string
	Min    *string
	Max    *string
}

// ListQuery is the storage-level shape of a datatable listing.
type ListQuery struct {
	Filters       []ColumnFilter
	OwnerColumn   string
	OwnerID       *int64
	SearchTerm    string
	SearchColumns []string
	DateColumn    string
	DateStart     *time.Time
	DateEnd       *time.Time
	Ranges        []RangeFilter
	OrderColumn   string
	OrderDesc     bool
	Offset        int
	Limit         int
}

// Store is the generic persistence surface the engine drives through a
// model descriptor.
type Store interface {
	List(d *ModelDescriptor, q ListQuery) (interface{}, int64, error)
	Get(d *ModelDescriptor, id int64) (interface{}, error)
	Create(d *ModelDescriptor, rec interface{}) error
	Save(d *ModelDescriptor, rec interface{}) error
	Delete(d *ModelDescriptor, id int64) (int64, error)
	Exists(d *ModelDescriptor, id int64) (bool, error)
}

// Row is one rendered listing row.
type Row struct {
	ID    int64             `json:"id"`
	Cells map[string]string `json:"cells"`
}

// Page is one rendered listing page.
type Page struct {
	ModelPath  string   `json:"modelPath"`
	Fields     []string `json:"fields"`
	Rows       []Row    `json:"rows"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
	TotalItems int64    `json:"totalItems"`
}

// Option is one FK candidate row for the select widgets.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type Service struct {
	registry *Registry
	store    Store
	prefs    *Preferences
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(registry *Registry, store Store, prefs *Preferences, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		store:    store,
		prefs:    prefs,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Resolve(path string) (*ModelDescriptor, error) {
	return s.registry.Resolve(path)
}

func (s *Service) Preferences() *Preferences {
	return s.prefs
}

// List runs the full listing pipeline: saved filters, ownership, ad-hoc
// request filters, forced sort, and pagination with the stored page size.
func (s *Service) List(path string, req Requester, page int, query url.Values) (*Page, error) {
	d, err := s.registry.Resolve(path)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		return nil, internal.ErrBadPageNumber
	}

	q := s.buildQuery(d, req, query, true)

	pageSize, err := s.prefs.PageSize(d.Path)
	if err != nil {
		return nil, fmt.Errorf("page size for %s: %w", d.Path, err)
	}
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize

	slice, total, err := s.store.List(d, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.Path, err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		return nil, internal.ErrBadPageNumber
	}

	result := &Page{
		ModelPath:  d.Path,
		Fields:     d.FieldNames(),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: total,
	}
	d.ForEach(slice, func(rec interface{}) {
		result.Rows = append(result.Rows, Row{
			ID:    d.PrimaryKey(rec),
			Cells: renderCells(d, rec),
		})
	})
	return result, nil
}

// Create builds a record from submitted form values and persists it.
// Ownership is forced to the requester on owned models.
func (s *Service) Create(path string, req Requester, form url.Values) (int64, error) {
	d, err := s.registry.Resolve(path)
	if err != nil {
		return 0, err
	}
	if d.ReadOnly {
		return 0, internal.NewValidationError(fmt.Sprintf("%s is read-only", d.DisplayName), internal.ErrCodeValidationFailed)
	}
	if d.HasCreatedBy() && req.Anonymous {
		return 0, internal.ErrAuthRequired
	}

	rec := d.NewRecord()
	if err := s.applyForm(d, rec, form, false); err != nil {
		return 0, err
	}
	if d.ApplyDefaults != nil {
		d.ApplyDefaults(rec, s.now())
	}
	if d.SetOwner != nil {
		d.SetOwner(rec, req.UserID)
	}

	if err := s.store.Create(d, rec); err != nil {
		return 0, fmt.Errorf("create %s: %w", d.Path, err)
	}
	return d.PrimaryKey(rec), nil
}

// Update loads the record and applies the submitted attributes. Fields
// whose current value is unset are skipped, matching the behavior the
// screens have always had.
func (s *Service) Update(path string, req Requester, id int64, form url.Values) error {
	d, err := s.registry.Resolve(path)
	if err != nil {
		return err
	}
	if d.ReadOnly {
		return internal.NewValidationError(fmt.Sprintf("%s is read-only", d.DisplayName), internal.ErrCodeValidationFailed)
	}
	if d.HasCreatedBy() && req.Anonymous {
		return internal.ErrAuthRequired
	}

	rec, err := s.store.Get(d, id)
	if err != nil {
		return fmt.Errorf("get %s %d: %w", d.Path, id, err)
	}
	if rec == nil {
		return internal.ErrRecordNotFound
	}

	if err := s.applyForm(d, rec, form, true); err != nil {
		return err
	}
	if d.SetOwner != nil {
		d.SetOwner(rec, req.UserID)
	}

	if err := s.store.Save(d, rec); err != nil {
		return fmt.Errorf("save %s %d: %w", d.Path, id, err)
	}
	return nil
}

// Delete removes the record; a second delete of the same id reports
// not found.
func (s *Service) Delete(path string, id int64) error {
	d, err := s.registry.Resolve(path)
	if err != nil {
		return err
	}
	if d.ReadOnly {
		return internal.NewValidationError(fmt.Sprintf("%s is read-only", d.DisplayName), internal.ErrCodeValidationFailed)
	}

	affected, err := s.store.Delete(d, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", d.Path, id, err)
	}
	if affected == 0 {
		return internal.ErrRecordNotFound
	}
	return nil
}

// ExportCSV renders the filtered listing with the currently visible
// columns. Hidden columns are dropped from both header and rows.
func (s *Service) ExportCSV(path string, req Requester, query url.Values) (header []string, rows [][]string, err error) {
	d, err := s.registry.Resolve(path)
	if err != nil {
		return nil, nil, err
	}

	visibility, err := s.prefs.Visibility(d.Path, d.FieldNames())
	if err != nil {
		return nil, nil, fmt.Errorf("visibility for %s: %w", d.Path, err)
	}
	hidden := make(map[string]bool, len(visibility))
	for _, row := range visibility {
		hidden[row.Key] = row.Value
	}

	var visible []*FieldDescriptor
	for i := range d.Fields {
		if !hidden[d.Fields[i].Name] {
			visible = append(visible, &d.Fields[i])
			header = append(header, d.Fields[i].Name)
		}
	}

	q := s.buildQuery(d, req, query, false)
	slice, _, err := s.store.List(d, q)
	if err != nil {
		return nil, nil, fmt.Errorf("export %s: %w", d.Path, err)
	}

	d.ForEach(slice, func(rec interface{}) {
		row := make([]string, len(visible))
		for i, fd := range visible {
			if fd.Get == nil {
				continue
			}
			if v, ok := fd.Get(rec); ok {
				row[i] = v
			}
		}
		rows = append(rows, row)
	})
	return header, rows, nil
}

// ForeignKeyOptions lists the candidate rows of every FK field whose
// target model is registered.
func (s *Service) ForeignKeyOptions(path string) (map[string][]Option, error) {
	d, err := s.registry.Resolve(path)
	if err != nil {
		return nil, err
	}

	options := make(map[string][]Option)
	for name, target := range d.ForeignKeys() {
		td, err := s.registry.Resolve(target)
		if err != nil {
			continue
		}
		slice, _, err := s.store.List(td, ListQuery{OrderColumn: "id"})
		if err != nil {
			return nil, fmt.Errorf("fk options %s.%s: %w", d.Path, name, err)
		}
		var opts []Option
		td.ForEach(slice, func(rec interface{}) {
			label := strconv.FormatInt(td.PrimaryKey(rec), 10)
			for _, labelField := range []string{"name", "username"} {
				fd, ok := td.Field(labelField)
				if !ok || fd.Get == nil {
					continue
				}
				if v, ok := fd.Get(rec); ok {
					label = v
				}
				break
			}
			opts = append(opts, Option{ID: td.PrimaryKey(rec), Label: label})
		})
		options[name] = opts
	}
	return options, nil
}

// buildQuery merges saved filters, ownership, and the ad-hoc request
// filters into one storage query. Saved filter keys that no longer name
// a live field are dropped. Listings force the newest-first timestamp
// sort when the model has one; exports always honor the requested sort.
func (s *Service) buildQuery(d *ModelDescriptor, req Requester, query url.Values, forceTimestampSort bool) ListQuery {
	q := ListQuery{OrderColumn: "id"}

	saved, err := s.prefs.SavedFilters(d.Path)
	if err != nil {
		s.logger.Error("loading saved filters", "model", d.Path, "error", err)
	}
	for _, f := range saved {
		fd, ok := d.Field(f.Key)
		if !ok {
			continue
		}
		q.Filters = append(q.Filters, ColumnFilter{Column: columnOf(fd), Value: f.Value})
	}

	if d.HasCreatedBy() && !req.Anonymous {
		ownerID := req.UserID
		q.OwnerColumn = d.CreatedByColumn
		q.OwnerID = &ownerID
	}

	if term := strings.TrimSpace(query.Get("search")); term != "" {
		q.SearchTerm = term
		for _, fd := range d.Fields {
			if fd.Kind == KindText || fd.Kind == KindEmail {
				q.SearchColumns = append(q.SearchColumns, columnOf(&fd))
			}
		}
	}

	if d.TimestampField != "" {
		if fd, ok := d.Field(d.TimestampField); ok {
			q.DateColumn = columnOf(fd)
		}
		if raw := query.Get("start_date"); raw != "" {
			if t, err := parseRecordTime(raw); err == nil {
				q.DateStart = &t
			}
		}
		if raw := query.Get("end_date"); raw != "" {
			if t, err := parseRecordTime(raw); err == nil {
				q.DateEnd = &t
			}
		}
	}

	for i := range d.Fields {
		fd := &d.Fields[i]
		if fd.Kind != KindInteger && fd.Kind != KindDecimal {
			continue
		}
		r := RangeFilter{Column: columnOf(fd)}
		if v := query.Get(fd.Name + "_min"); v != "" {
			r.Min = &v
		}
		if v := query.Get(fd.Name + "_max"); v != "" {
			r.Max = &v
		}
		if r.Min != nil || r.Max != nil {
			q.Ranges = append(q.Ranges, r)
		}
	}

	if forceTimestampSort && d.TimestampField != "" {
		if fd, ok := d.Field(d.TimestampField); ok {
			q.OrderColumn = columnOf(fd)
			q.OrderDesc = true
		}
	} else if raw := query.Get("order_by"); raw != "" {
		name := strings.TrimPrefix(raw, "-")
		if fd, ok := d.Field(name); ok {
			q.OrderColumn = columnOf(fd)
			q.OrderDesc = strings.HasPrefix(raw, "-")
		}
	}

	return q
}

// applyForm maps submitted values onto the record through the field
// descriptors. A foreign key pointing at a row that does not exist is
// silently nulled rather than rejected.
func (s *Service) applyForm(d *ModelDescriptor, rec interface{}, form url.Values, skipUnset bool) error {
	for i := range d.Fields {
		fd := &d.Fields[i]
		if fd.ReadOnly || fd.Set == nil {
			continue
		}
		if _, submitted := form[fd.Name]; !submitted {
			continue
		}
		if skipUnset && fd.IsUnset != nil && fd.IsUnset(rec) {
			continue
		}

		raw := form.Get(fd.Name)
		if fd.Kind == KindFK && raw != "" {
			raw = s.resolveFK(fd, raw)
		}
		if err := fd.Set(rec, raw); err != nil {
			return internal.NewValidationError(
				fmt.Sprintf("invalid value for %s: %v", fd.Name, err),
				internal.ErrCodeValidationFailed,
			)
		}
	}
	return nil
}

// resolveFK returns the raw id when the referenced row exists, and an
// empty string otherwise so the relation is nulled.
func (s *Service) resolveFK(fd *FieldDescriptor, raw string) string {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ""
	}
	td, err := s.registry.Resolve(fd.FKTarget)
	if err != nil {
		return ""
	}
	exists, err := s.store.Exists(td, id)
	if err != nil {
		s.logger.Error("fk existence check", "target", fd.FKTarget, "id", id, "error", err)
		return ""
	}
	if !exists {
		return ""
	}
	return raw
}

func columnOf(fd *FieldDescriptor) string {
	if fd.Column != "" {
		return fd.Column
	}
	return fd.Name
}

func renderCells(d *ModelDescriptor, rec interface{}) map[string]string {
	cells := make(map[string]string, len(d.Fields))
	for _, fd := range d.Fields {
		if fd.Get == nil {
			continue
		}
		if v, ok := fd.Get(rec); ok {
			cells[fd.Name] = v
		} else {
			cells[fd.Name] = ""
		}
	}
	return cells
}
