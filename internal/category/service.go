package category

import (
	"log/slog"

	"github.com/VivaainNg/finance-tracker/internal"
	categoryDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	GetAll() ([]*categoryDatamodel.Category, error)
	GetByID(id int64) (*categoryDatamodel.Category, error)
	GetByName(name string) (*categoryDatamodel.Category, error)
	Create(category *categoryDatamodel.Category) error
	Update(category *categoryDatamodel.Category) error
	Delete(id int64) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetAllCategories() ([]*Category, error) {
	records, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, err
	}
	return FromDataModelSlice(records), nil
}

func (s *Service) GetByID(id int64) (*Category, error) {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, internal.ErrCategoryNotFound
	}
	return FromDataModel(record), nil
}

func (s *Service) Create(dto CategoryDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	record := &categoryDatamodel.Category{Name: dto.Name}
	if err := s.repo.Create(record); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("category created", "category_id", record.ID, "name", record.Name)
	return FromDataModel(record), nil
}

func (s *Service) Update(id int64, dto CategoryDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	record, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, internal.ErrCategoryNotFound
	}

	record.Name = dto.Name
	if err := s.repo.Update(record); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", id)
		return nil, err
	}

	return FromDataModel(record), nil
}

// Delete removes the category. Dependent transactions keep their rows;
// the database nulls their category reference.
func (s *Service) Delete(id int64) error {
	record, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return internal.ErrCategoryNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete category", "error", err, "category_id", id)
		return err
	}

	s.logger.Info("category deleted", "category_id", id, "name", record.Name)
	return nil
}
