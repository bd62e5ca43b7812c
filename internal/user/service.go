package user

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/logging"
)

type CreateInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,phone10"`
	Role     Role   `json:"role" validate:"omitempty,oneof=admin customer"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,phone10"`
	Role     *Role   `json:"role" validate:"omitempty,oneof=admin customer"`
	Enabled  *bool   `json:"enabled"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(repo Repository, validate *validator.Validate, logger *zap.Logger) *Service {
	return &Service{repo: repo, validate: validate, logger: logger}
}

func (s *Service) List(ctx context.Context, f Filter) ([]User, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Role == "" {
		in.Role = RoleCustomer
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		Role:         in.Role,
		PasswordHash: hash,
		Enabled:      true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	logging.Info(ctx, s.logger, "user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.Enabled != nil {
		u.Enabled = *in.Enabled
	}
	if in.Password != nil {
		if u.PasswordHash, err = HashPassword(*in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
