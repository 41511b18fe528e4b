package category

import (
	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DefaultCategories is the canonical seed set installed by the
// seed-categories command.
var DefaultCategories = []string{
	"Food",
	"Transportation",
	"Health",
	"Entertainment",
	"Social Life",
	"Household",
	"Education",
	"Insurance",
	"Investment",
	"Other",
}

func ToDataModel(c *Category) *categoryDatamodel.Category {
	return &categoryDatamodel.Category{
		ID:   c.ID,
		Name: c.Name,
	}
}

func FromDataModel(c *categoryDatamodel.Category) *Category {
	return &Category{
		ID:   c.ID,
		Name: c.Name,
	}
}

func FromDataModelSlice(categories []*categoryDatamodel.Category) []*Category {
	result := make([]*Category, len(categories))
	for i, c := range categories {
		result[i] = FromDataModel(c)
	}
	return result
}
