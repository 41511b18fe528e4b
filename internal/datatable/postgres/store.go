package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/VivaainNg/finance-tracker/internal/datatable"
)

// Store drives arbitrary registered models through GORM using only the
// column names the descriptors declare.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) List(d *datatable.ModelDescriptor, q datatable.ListQuery) (interface{}, int64, error) {
	query := s.db.Model(d.NewRecord())

	for _, f := range q.Filters {
		pattern := "%" + strings.ToLower(f.Value) + "%"
		query = query.Where(fmt.Sprintf("LOWER(CAST(%s AS TEXT)) LIKE ?", f.Column), pattern)
	}
	if q.OwnerID != nil && q.OwnerColumn != "" {
		query = query.Where(fmt.Sprintf("%s = ?", q.OwnerColumn), *q.OwnerID)
	}
	if q.SearchTerm != "" && len(q.SearchColumns) > 0 {
		pattern := "%" + strings.ToLower(q.SearchTerm) + "%"
		clauses := make([]string, len(q.SearchColumns))
		args := make([]interface{}, len(q.SearchColumns))
		for i, col := range q.SearchColumns {
			clauses[i] = fmt.Sprintf("LOWER(%s) LIKE ?", col)
			args[i] = pattern
		}
		query = query.Where(strings.Join(clauses, " OR "), args...)
	}
	if q.DateColumn != "" {
		if q.DateStart != nil {
			query = query.Where(fmt.Sprintf("%s >= ?", q.DateColumn), *q.DateStart)
		}
		if q.DateEnd != nil {
			query = query.Where(fmt.Sprintf("%s <= ?", q.DateColumn), *q.DateEnd)
		}
	}
	for _, r := range q.Ranges {
		if r.Min != nil {
			query = query.Where(fmt.Sprintf("%s >= ?", r.Column), *r.Min)
		}
		if r.Max != nil {
			query = query.Where(fmt.Sprintf("%s <= ?", r.Column), *r.Max)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := q.OrderColumn
	if order == "" {
		order = "id"
	}
	if q.OrderDesc {
		order += " DESC"
	}
	query = query.Order(order)

	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	for _, preload := range d.Preloads {
		query = query.Preload(preload)
	}

	slice := d.NewSlice()
	if err := query.Find(slice).Error; err != nil {
		return nil, 0, err
	}
	return slice, total, nil
}

// Get returns nil without error when no row matches.
func (s *Store) Get(d *datatable.ModelDescriptor, id int64) (interface{}, error) {
	query := s.db
	for _, preload := range d.Preloads {
		query = query.Preload(preload)
	}

	rec := d.NewRecord()
	err := query.First(rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Create(d *datatable.ModelDescriptor, rec interface{}) error {
	return s.db.Create(rec).Error
}

func (s *Store) Save(d *datatable.ModelDescriptor, rec interface{}) error {
	return s.db.Save(rec).Error
}

func (s *Store) Delete(d *datatable.ModelDescriptor, id int64) (int64, error) {
	result := s.db.Delete(d.NewRecord(), "id = ?", id)
	return result.RowsAffected, result.Error
}

func (s *Store) Exists(d *datatable.ModelDescriptor, id int64) (bool, error) {
	var count int64
	err := s.db.Model(d.NewRecord()).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
