package staff

import (
	"context"
	"errors"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type (
	StaffService interface {
		Register(ctx context.Context, req domain.RegisterStaffRequest) (*domain.StaffResponse, error)
		Login(ctx context.Context, req domain.LoginStaffRequest) (*domain.LoginStaffResponse, error)
		GetAllStaff(ctx context.Context) ([]*domain.StaffResponse, error)
		GetStaffByID(ctx context.Context, id string) (*domain.StaffResponse, error)
		DeleteStaff(ctx context.Context, id string) error
	}

	staffService struct {
		staffRepository StaffRepository
		jwtService      jwt.JWTService
	}
)

func NewStaffService(staffRepository StaffRepository, jwtService jwt.JWTService) StaffService {
	return &staffService{
		staffRepository: staffRepository,
		jwtService:      jwtService,
	}
}

func toStaffResponse(s *entities.Staff) *domain.StaffResponse {
	return &domain.StaffResponse{
		ID:    s.ID.String(),
		Name:  s.Name,
		Email: s.Email,
		Role:  s.Role,
	}
}

func (s *staffService) Register(ctx context.Context, req domain.RegisterStaffRequest) (*domain.StaffResponse, error) {
	if _, err := s.staffRepository.GetStaffByEmail(ctx, req.Email); err == nil {
		return nil, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	staff := &entities.Staff{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     req.Role,
	}
	if err := s.staffRepository.CreateStaff(ctx, staff); err != nil {
		return nil, err
	}
	return toStaffResponse(staff), nil
}

func (s *staffService) Login(ctx context.Context, req domain.LoginStaffRequest) (*domain.LoginStaffResponse, error) {
	staff, err := s.staffRepository.GetStaffByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCredentialsInvalid
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(req.Password)); err != nil {
		return nil, domain.ErrCredentialsInvalid
	}

	token := s.jwtService.GenerateTokenStaff(staff.ID.String(), staff.Role)
	return &domain.LoginStaffResponse{
		Token: token,
		Role:  staff.Role,
	}, nil
}

func (s *staffService) GetAllStaff(ctx context.Context) ([]*domain.StaffResponse, error) {
	staff, err := s.staffRepository.GetAllStaff(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.StaffResponse, 0, len(staff))
	for _, item := range staff {
		out = append(out, toStaffResponse(item))
	}
	return out, nil
}

func (s *staffService) GetStaffByID(ctx context.Context, id string) (*domain.StaffResponse, error) {
	staff, err := s.staffRepository.GetStaffByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStaffNotFound
		}
		return nil, err
	}
	return toStaffResponse(staff), nil
}

func (s *staffService) DeleteStaff(ctx context.Context, id string) error {
	if _, err := s.staffRepository.GetStaffByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrStaffNotFound
		}
		return err
	}
	return s.staffRepository.DeleteStaff(ctx, id)
}
