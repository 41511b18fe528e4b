package category

import "errors"

type CategoryDTO struct {
	Name string `json:"name"`
}

func (dto CategoryDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 128 {
		return errors.New("name must be at most 128 characters")
	}
	return nil
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}
