package postgres

import (
	"github.com/VivaainNg/finance-tracker/internal/auth"
	userDatamodel "github.com/VivaainNg/finance-tracker/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// UserRepository implements auth.RepositoryAPI using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) auth.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(username string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Where("username = ?", username).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(user *userDatamodel.User) error {
	return r.db.Create(user).Error
}
