package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	datatableDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/datatable"
)

// PreferencesRepository persists the datatable preference rows.
type PreferencesRepository struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

func (r *PreferencesRepository) FiltersFor(parent string) ([]datatableDatamodel.ModelFilter, error) {
	var filters []datatableDatamodel.ModelFilter
	err := r.db.Where("parent = ?", parent).Order("id ASC").Find(&filters).Error
	return filters, err
}

func (r *PreferencesRepository) UpsertFilter(parent, key, value string) error {
	row := datatableDatamodel.ModelFilter{Parent: parent, Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parent"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
}

func (r *PreferencesRepository) DeleteFilter(parent string, id int64) error {
	return r.db.Where("parent = ? AND id = ?", parent, id).
		Delete(&datatableDatamodel.ModelFilter{}).Error
}

func (r *PreferencesRepository) VisibilityFor(parent string) ([]datatableDatamodel.HideShowFilter, error) {
	var rows []datatableDatamodel.HideShowFilter
	err := r.db.Where("parent = ?", parent).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *PreferencesRepository) CreateVisibility(parent, key string) (datatableDatamodel.HideShowFilter, error) {
	row := datatableDatamodel.HideShowFilter{Parent: parent, Key: key, Value: false}
	err := r.db.Create(&row).Error
	return row, err
}

func (r *PreferencesRepository) UpsertVisibility(parent, key string, hidden bool) error {
	row := datatableDatamodel.HideShowFilter{Parent: parent, Key: key, Value: hidden}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parent"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
}

// PageItemsFor returns nil when no row exists yet.
func (r *PreferencesRepository) PageItemsFor(parent string) (*datatableDatamodel.PageItems, error) {
	var row datatableDatamodel.PageItems
	err := r.db.Where("parent = ?", parent).Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *PreferencesRepository) SavePageItems(parent string, itemsPerPage int) error {
	row := datatableDatamodel.PageItems{
		Parent:       parent,
		ItemsPerPage: itemsPerPage,
		UpdatedAt:    time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parent"}},
		DoUpdates: clause.AssignmentColumns([]string{"items_per_page", "updated_at"}),
	}).Create(&row).Error
}
