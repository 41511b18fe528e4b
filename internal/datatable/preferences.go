package datatable

import (
	"strings"

	datatableDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/datatable"
)

const DefaultPageSize = 25

// PreferencesRepository persists the per-model-path datatable state:
// saved filters, column visibility, and page size.
type PreferencesRepository interface {
	FiltersFor(parent string) ([]datatableDatamodel.ModelFilter, error)
	UpsertFilter(parent, key, value string) error
	DeleteFilter(parent string, id int64) error

	VisibilityFor(parent string) ([]datatableDatamodel.HideShowFilter, error)
	CreateVisibility(parent, key string) (datatableDatamodel.HideShowFilter, error)
	UpsertVisibility(parent, key string, hidden bool) error

	PageItemsFor(parent string) (*datatableDatamodel.PageItems, error)
	SavePageItems(parent string, itemsPerPage int) error
}

// Preferences wraps the repository with the model-path normalization
// and get-or-create semantics the datatable screens rely on.
type Preferences struct {
	repo PreferencesRepository
}

func NewPreferences(repo PreferencesRepository) *Preferences {
	return &Preferences{repo: repo}
}

func normalizeParent(path string) string {
	return strings.ToLower(path)
}

// SavedFilters returns the stored filters for a model path. Keys that
// no longer exist on the model are kept here and dropped at query time.
func (p *Preferences) SavedFilters(path string) ([]datatableDatamodel.ModelFilter, error) {
	return p.repo.FiltersFor(normalizeParent(path))
}

func (p *Preferences) UpsertFilter(path, key, value string) error {
	return p.repo.UpsertFilter(normalizeParent(path), key, value)
}

func (p *Preferences) DeleteFilter(path string, id int64) error {
	return p.repo.DeleteFilter(normalizeParent(path), id)
}

// Visibility returns one row per field in field order, creating missing
// rows as visible. Reading the preferences therefore seeds them.
func (p *Preferences) Visibility(path string, fieldNames []string) ([]datatableDatamodel.HideShowFilter, error) {
	parent := normalizeParent(path)

	existing, err := p.repo.VisibilityFor(parent)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]datatableDatamodel.HideShowFilter, len(existing))
	for _, row := range existing {
		byKey[row.Key] = row
	}

	rows := make([]datatableDatamodel.HideShowFilter, 0, len(fieldNames))
	for _, name := range fieldNames {
		row, ok := byKey[name]
		if !ok {
			row, err = p.repo.CreateVisibility(parent, name)
			if err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *Preferences) ToggleVisibility(path, key string, hidden bool) error {
	return p.repo.UpsertVisibility(normalizeParent(path), key, hidden)
}

// PageSize returns the stored page size, or the default when no row
// exists yet.
func (p *Preferences) PageSize(path string) (int, error) {
	row, err := p.repo.PageItemsFor(normalizeParent(path))
	if err != nil {
		return 0, err
	}
	if row == nil || row.ItemsPerPage <= 0 {
		return DefaultPageSize, nil
	}
	return row.ItemsPerPage, nil
}

func (p *Preferences) SetPageSize(path string, itemsPerPage int) error {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultPageSize
	}
	return p.repo.SavePageItems(normalizeParent(path), itemsPerPage)
}
