package item

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=item
type Repository interface {
	CreateItem(ctx context.Context, it *Item) error
	GetItem(ctx context.Context, id int64) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, id int64) error
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

type Params struct {
	Name        string `validate:"required,max=200"`
	Description string
	Price       int64 `validate:"gt=0"`
	CostPrice   int64 `validate:"gte=0"`
	Quantity    int64 `validate:"gte=0"`
	Category    string
	SKU         string `validate:"max=64"`
}

func (s *Service) check(p *Params) error {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)

	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

func (s *Service) Create(ctx context.Context, params Params) (*Item, error) {
	if err := s.check(&params); err != nil {
		return nil, err
	}

	now := time.Now()
	it := &Item{
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		CostPrice:   params.CostPrice,
		Quantity:    params.Quantity,
		Category:    params.Category,
		SKU:         params.SKU,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateItem(ctx, it); err != nil {
		return nil, err
	}

	return it, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Item, error) {
	return s.repo.ListItems(ctx)
}

// Update changes catalogue fields only. Existing sale line items keep the
// price they were sold at.
func (s *Service) Update(ctx context.Context, id int64, params Params) (*Item, error) {
	if err := s.check(&params); err != nil {
		return nil, err
	}

	it, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	it.Name = params.Name
	it.Description = params.Description
	it.Price = params.Price
	it.CostPrice = params.CostPrice
	it.Quantity = params.Quantity
	it.Category = params.Category
	it.SKU = params.SKU
	it.UpdatedAt = time.Now()

	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return nil, err
	}

	return it, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteItem(ctx, id)
}
