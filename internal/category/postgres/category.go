package postgres

import (
	"github.com/VivaainNg/finance-tracker/internal/category"
	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
	"gorm.io/gorm"
)

// CategoryRepository implements the category.RepositoryAPI interface using GORM
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll() ([]*categoryDatamodel.Category, error) {
	var categories []*categoryDatamodel.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(id int64) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.Where("id = ?", id).First(&cat).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) GetByName(name string) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.Where("name = ?", name).First(&cat).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(cat *categoryDatamodel.Category) error {
	return r.db.Create(cat).Error
}

func (r *CategoryRepository) Update(cat *categoryDatamodel.Category) error {
	return r.db.Save(cat).Error
}

// Delete hard-deletes the category row. The transactions FK is declared
// ON DELETE SET NULL, so dependent rows survive with a null category.
func (r *CategoryRepository) Delete(id int64) error {
	return r.db.Delete(&categoryDatamodel.Category{}, id).Error
}
