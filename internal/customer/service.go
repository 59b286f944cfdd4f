package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=customer
type Repository interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

type Params struct {
	Name    string `validate:"required,max=200"`
	Email   string `validate:"omitempty,email"`
	Phone   string `validate:"max=50"`
	Address string
	Notes   string
}

func (p Params) normalize() Params {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)

	return p
}

func (s *Service) check(p Params) error {
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

func (s *Service) Create(ctx context.Context, params Params) (*Customer, error) {
	params = params.normalize()
	if err := s.check(params); err != nil {
		return nil, err
	}

	now := time.Now()
	c := &Customer{
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		Address:   params.Address,
		Notes:     params.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// Update replaces the editable fields of an existing customer.
func (s *Service) Update(ctx context.Context, id int64, params Params) (*Customer, error) {
	params = params.normalize()
	if err := s.check(params); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = params.Name
	c.Email = params.Email
	c.Phone = params.Phone
	c.Address = params.Address
	c.Notes = params.Notes
	c.UpdatedAt = time.Now()

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteCustomer(ctx, id)
}
