package staff

import (
	"context"

	"kopimatic/entities"

	"gorm.io/gorm"
)

type (
	StaffRepository interface {
		CreateStaff(ctx context.Context, staff *entities.Staff) error
		GetStaffByID(ctx context.Context, id string) (*entities.Staff, error)
		GetStaffByEmail(ctx context.Context, email string) (*entities.Staff, error)
		GetAllStaff(ctx context.Context) ([]*entities.Staff, error)
		UpdateStaff(ctx context.Context, staff *entities.Staff) error
		DeleteStaff(ctx context.Context, id string) error
	}

	staffRepository struct {
		db *gorm.DB
	}
)

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) CreateStaff(ctx context.Context, staff *entities.Staff) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

func (r *staffRepository) GetStaffByID(ctx context.Context, id string) (*entities.Staff, error) {
	var staff entities.Staff
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetStaffByEmail(ctx context.Context, email string) (*entities.Staff, error) {
	var staff entities.Staff
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetAllStaff(ctx context.Context) ([]*entities.Staff, error) {
	var staff []*entities.Staff
	if err := r.db.WithContext(ctx).Order("name asc").Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *staffRepository) UpdateStaff(ctx context.Context, staff *entities.Staff) error {
	return r.db.WithContext(ctx).Save(staff).Error
}

func (r *staffRepository) DeleteStaff(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Staff{}).Error
}
